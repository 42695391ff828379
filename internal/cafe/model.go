package cafe

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind tags a display-list entry as a regular café card or the expanded detail row.
type Kind string

const (
	KindProduct       Kind = "Product"
	KindProductDetail Kind = "ProductDetail"
)

// Post is a single café record as returned by the content API (after flattening).
type Post struct {
	ID          int          `json:"id"`
	DocumentID  string       `json:"documentId,omitempty"`
	ShopName    string       `json:"shop_name"`
	Slug        string       `json:"slug"`
	Description RichText     `json:"description,omitempty"`
	Address     *Address     `json:"address,omitempty"`
	MenuSection *MenuSection `json:"menu_section,omitempty"`
	ShopImages  MediaList    `json:"shop_img,omitempty"`
	SEO         *SEO         `json:"seo,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Image returns the URL of the first shop image, or "".
func (p Post) Image() string {
	if len(p.ShopImages) == 0 {
		return ""
	}
	return p.ShopImages[0].URL
}

// City returns the address city, or "".
func (p Post) City() string {
	if p.Address == nil {
		return ""
	}
	return p.Address.City
}

// Section returns the address city section, or "".
func (p Post) Section() string {
	if p.Address == nil {
		return ""
	}
	return p.Address.CitySection
}

// Address is the embedded address component of a café.
type Address struct {
	Street      string     `json:"street,omitempty"`
	City        string     `json:"city,omitempty"`
	CitySection string     `json:"city_section,omitempty"`
	ZipCode     FlexString `json:"zip_code,omitempty"`
}

// UnmarshalJSON accepts both zip_code and the legacy zipcode field.
func (a *Address) UnmarshalJSON(b []byte) error {
	type plain Address
	var aux struct {
		plain
		LegacyZip FlexString `json:"zipcode"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = Address(aux.plain)
	if a.ZipCode == "" {
		a.ZipCode = aux.LegacyZip
	}
	return nil
}

// MenuSection references the café's menu. Menu holds the embedded categories
// verbatim; use EmbeddedMenu to check whether they are usable.
type MenuSection struct {
	ID   int             `json:"id"`
	Menu json.RawMessage `json:"menu,omitempty"`
}

// HasEmbeddedMenu reports whether the section carries an inline category array.
func (m *MenuSection) HasEmbeddedMenu() bool {
	if m == nil {
		return false
	}
	_, ok := rawArray(m.Menu)
	return ok
}

// Media is an uploaded file reference.
type Media struct {
	URL             string `json:"url"`
	AlternativeText string `json:"alternativeText,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
}

// MediaList decodes either a single media object or a list of them.
type MediaList []Media

func (l *MediaList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = nil
		return nil
	}
	if b[0] == '{' {
		var m Media
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		*l = MediaList{m}
		return nil
	}
	var list []Media
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// SEO is the optional shared SEO component attached to a café.
type SEO struct {
	MetaTitle       string `json:"metaTitle,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`
	Keywords        string `json:"keywords,omitempty"`
	CanonicalURL    string `json:"canonicalURL,omitempty"`
	OGType          string `json:"ogType,omitempty"`
	TwitterCard     string `json:"twitterCard,omitempty"`
}

// Entry is one row of the display list: a café card or its detail panel.
type Entry struct {
	Post
	UniqueID int  `json:"uniqueId"`
	Kind     Kind `json:"kind"`
}

// RowID identifies the café the entry belongs to.
func (e Entry) RowID() int { return e.ID }

// IsDetail reports whether the entry is the synthetic detail row.
func (e Entry) IsDetail() bool { return e.Kind == KindProductDetail }

// AsDetail returns a copy of the entry tagged as detail row.
func (e Entry) AsDetail() Entry {
	d := e
	d.Kind = KindProductDetail
	return d
}

// Ref is the compact café reference used by search results and navigation.
type Ref struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Address *Address `json:"address,omitempty"`
}

// RefOf builds a Ref from a post.
func RefOf(p Post) Ref {
	return Ref{ID: p.ID, Name: p.ShopName, Address: p.Address}
}

// FlexString decodes JSON strings and numbers into a string.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// RichText decodes either a markdown string or a Strapi blocks array into plain markdown.
type RichText string

func (t *RichText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*t = RichText(v)
		return nil
	}
	var blocks []richBlock
	if err := json.Unmarshal(b, &blocks); err != nil {
		// unknown rich text shape; keep the page renderable
		*t = ""
		return nil
	}
	paras := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		if txt := strings.TrimSpace(blk.text()); txt != "" {
			paras = append(paras, txt)
		}
	}
	*t = RichText(strings.Join(paras, "\n\n"))
	return nil
}

type richBlock struct {
	Type     string      `json:"type"`
	Text     string      `json:"text"`
	Children []richBlock `json:"children"`
}

func (b richBlock) text() string {
	if b.Text != "" {
		return b.Text
	}
	var sb strings.Builder
	for _, c := range b.Children {
		sb.WriteString(c.text())
	}
	return sb.String()
}

// FlexInt decodes JSON numbers and numeric strings into an int.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = FlexInt(int(f))
	return nil
}
