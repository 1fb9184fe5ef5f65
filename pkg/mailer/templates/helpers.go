package templates

import (
	"time"
)

type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04") }
}
func WithChanges(ch []string) Option { return func(d *EmailData) { d.Changes = ch } }
func WithPhotoURL(url string) Option { return func(d *EmailData) { d.PhotoURL = url } }

// Brand carries the sender identity shared by every template.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

// NewData fills the common fields from brand, then applies opts.
func NewData(b Brand, typ, name, email string, opts ...Option) map[string]any {
	d := EmailData{
		Name:        name,
		Email:       email,
		Type:        typ,
		AppName:     b.AppName,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
