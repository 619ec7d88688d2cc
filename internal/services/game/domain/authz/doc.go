// Package authz decides which commands a participant may issue.
//
// Roles are permission groups; a policy maps each group to a capability set
// and names the group new participants join. The gate applies the active
// policy and can swap it at runtime when the policy file changes.
package authz
