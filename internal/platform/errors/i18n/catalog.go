// Package i18n renders localized error and command messages.
package i18n

import (
	"bytes"
	"sync"
	"text/template"

	i18ncatalog "github.com/louisbranch/parkline/internal/platform/i18n/catalog"
)

// Code is a message key.
type Code = string

// Catalog maps message keys to templates for one locale.
type Catalog struct {
	locale    string
	messages  map[Code]string
	mu        sync.Mutex
	templates map[Code]*template.Template
}

var (
	catalogsMu sync.RWMutex
	catalogs   = map[string]*Catalog{}
)

// GetCatalog returns the catalog for a locale, resolved to the closest
// available one.
func GetCatalog(locale string) *Catalog {
	if c, ok := lookupCatalog(locale); ok {
		return c
	}
	resolved, messages := i18ncatalog.Default().Messages(locale)
	if c, ok := lookupCatalog(resolved); ok {
		return c
	}
	return storeCatalogIfAbsent(resolved, NewCatalog(resolved, messages))
}

// Locale returns the catalog's locale.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the template for code with args. Codes missing from a
// non-base catalog render from the base locale, codes unknown everywhere as
// the code itself, and broken templates as their raw text.
func (c *Catalog) Format(code Code, args map[string]string) string {
	raw, ok := c.messages[code]
	if !ok {
		if c.locale != i18ncatalog.BaseLocale {
			return GetCatalog(i18ncatalog.BaseLocale).Format(code, args)
		}
		return code
	}
	tmpl, err := c.template(code, raw)
	if err != nil {
		return raw
	}
	if args == nil {
		args = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, args); err != nil {
		return raw
	}
	return buf.String()
}

func (c *Catalog) template(code Code, raw string) (*template.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.templates[code]; ok {
		return t, nil
	}
	t, err := template.New(code).Parse(raw)
	if err != nil {
		return nil, err
	}
	c.templates[code] = t
	return t, nil
}

// RegisterCatalog installs a catalog for a locale, replacing any existing
// one.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
}

// NewCatalog builds a catalog from raw templates.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned, templates: map[Code]*template.Template{}}
}

func lookupCatalog(locale string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	cat, ok := catalogs[locale]
	return cat, ok
}

func storeCatalogIfAbsent(locale string, candidate *Catalog) *Catalog {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	if existing, ok := catalogs[locale]; ok {
		return existing
	}
	catalogs[locale] = candidate
	return candidate
}
