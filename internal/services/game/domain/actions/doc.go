// Package actions implements the concrete command kinds: park entrance
// placement, ride vehicle configuration, wall removal, cheats, player groups,
// pausing and player joins.
package actions
