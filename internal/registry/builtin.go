package registry

import "emailbuilder/internal/domain"

// Built-in block type identifiers.
const (
	TypeHeading     = "heading"
	TypeText        = "text"
	TypeButton      = "button"
	TypeImage       = "image"
	TypeLogo        = "logo"
	TypeDivider     = "divider"
	TypeSpacer      = "spacer"
	TypeColumns     = "columns"
	TypeProduct     = "product"
	TypeProductGrid = "product-grid"
	TypeCollection  = "collection"
	TypeDiscount    = "discount"
	TypeSocial      = "social"
	TypeContact     = "contact"
	TypeFooter      = "footer"
	TypeMenu        = "menu"
)

var alignOptions = []Option{
	{Value: "left", Label: "Left"},
	{Value: "center", Label: "Center"},
	{Value: "right", Label: "Right"},
}

func pad(v, h int) domain.Layout {
	return domain.Layout{Padding: domain.Padding{Top: v, Right: h, Bottom: v, Left: h}}
}

func centered(v, h int) domain.Layout {
	l := pad(v, h)
	l.Align = "center"
	return l
}

// Builtin returns the block types the editor ships with.
func Builtin() []BlockType {
	return []BlockType{
		{
			ID: TypeHeading, Name: "Heading", Category: CategoryContent,
			Fields: []Field{
				{Name: "text", Type: FieldText, Label: "Heading text", Default: "Welcome to our store",
					Validation: &Validation{Required: true, MaxLength: 200}},
				{Name: "level", Type: FieldSelect, Label: "Level", Default: 2, Options: []Option{
					{Value: 1, Label: "H1"}, {Value: 2, Label: "H2"}, {Value: 3, Label: "H3"},
					{Value: 4, Label: "H4"}, {Value: 5, Label: "H5"}, {Value: 6, Label: "H6"},
				}},
				{Name: "color", Type: FieldColor, Label: "Text colour", Default: ""},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeText, Name: "Text", Category: CategoryContent,
			Fields: []Field{
				{Name: "text", Type: FieldTextarea, Label: "Text", Default: "Write something your customers will love."},
				{Name: "format", Type: FieldSelect, Label: "Format", Default: "plain", Options: []Option{
					{Value: "plain", Label: "Plain text"}, {Value: "markdown", Label: "Markdown"},
				}},
				{Name: "fontSize", Type: FieldRange, Label: "Font size", Default: 16,
					Validation: &Validation{Min: ptr(10), Max: ptr(32)}},
				{Name: "color", Type: FieldColor, Label: "Text colour", Default: ""},
			},
			DefaultLayout: pad(8, 24),
		},
		{
			ID: TypeButton, Name: "Button", Category: CategoryActions,
			Fields: []Field{
				{Name: "text", Type: FieldText, Label: "Label", Default: "Shop now",
					Validation: &Validation{Required: true, MaxLength: 80}},
				{Name: "url", Type: FieldURL, Label: "Link", Default: ""},
				{Name: "color", Type: FieldColor, Label: "Button colour", Default: ""},
				{Name: "textColor", Type: FieldColor, Label: "Label colour", Default: "#ffffff"},
				{Name: "fullWidth", Type: FieldCheckbox, Label: "Full width", Default: false},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeImage, Name: "Image", Category: CategoryMedia, PickKind: domain.PickImage,
			PickFields: map[string]string{"url": "url", "alt": "alt"},
			Fields: []Field{
				{Name: "url", Type: FieldImage, Label: "Image", Default: ""},
				{Name: "alt", Type: FieldText, Label: "Alt text", Default: ""},
				{Name: "link", Type: FieldURL, Label: "Link", Default: ""},
				{Name: "width", Type: FieldRange, Label: "Width (%)", Default: 100,
					Validation: &Validation{Min: ptr(10), Max: ptr(100)}},
			},
			DefaultLayout: centered(0, 0),
		},
		{
			ID: TypeLogo, Name: "Logo", Category: CategoryMedia, MaxPerDocument: 1, PickKind: domain.PickImage,
			PickFields: map[string]string{"url": "url", "alt": "alt"},
			Fields: []Field{
				{Name: "url", Type: FieldImage, Label: "Logo", Default: ""},
				{Name: "alt", Type: FieldText, Label: "Alt text", Default: ""},
				{Name: "width", Type: FieldRange, Label: "Width (px)", Default: 160,
					Validation: &Validation{Min: ptr(40), Max: ptr(600)}},
			},
			DefaultLayout: centered(24, 24),
		},
		{
			ID: TypeDivider, Name: "Divider", Category: CategoryLayout,
			Fields: []Field{
				{Name: "color", Type: FieldColor, Label: "Colour", Default: "#e5e7eb"},
				{Name: "thickness", Type: FieldRange, Label: "Thickness", Default: 1,
					Validation: &Validation{Min: ptr(1), Max: ptr(8)}},
			},
			DefaultLayout: pad(8, 24),
		},
		{
			ID: TypeSpacer, Name: "Spacer", Category: CategoryLayout,
			Fields: []Field{
				{Name: "height", Type: FieldRange, Label: "Height", Default: 24,
					Validation: &Validation{Min: ptr(4), Max: ptr(200)}},
			},
		},
		{
			ID: TypeColumns, Name: "Columns", Category: CategoryLayout, Container: true,
			AllowedChildTypes: []string{TypeHeading, TypeText, TypeButton, TypeImage, TypeDivider, TypeSpacer, TypeProduct},
			Fields: []Field{
				{Name: "count", Type: FieldSelect, Label: "Columns", Default: 2, Options: []Option{
					{Value: 2, Label: "Two"}, {Value: 3, Label: "Three"},
				}},
				{Name: "gap", Type: FieldRange, Label: "Gap", Default: 16,
					Validation: &Validation{Min: ptr(0), Max: ptr(48)}},
			},
			DefaultLayout: pad(8, 16),
		},
		{
			ID: TypeProduct, Name: "Product", Category: CategoryContent, PickKind: domain.PickProduct,
			PickFields: map[string]string{"id": "productId", "name": "name", "price": "price", "imageUrl": "imageUrl", "url": "url"},
			Fields: []Field{
				{Name: "productId", Type: FieldText, Label: "Product", Default: ""},
				{Name: "name", Type: FieldText, Label: "Name", Default: ""},
				{Name: "price", Type: FieldText, Label: "Price", Default: ""},
				{Name: "imageUrl", Type: FieldImage, Label: "Image", Default: ""},
				{Name: "url", Type: FieldURL, Label: "Link", Default: ""},
				{Name: "showPrice", Type: FieldCheckbox, Label: "Show price", Default: true},
				{Name: "buttonText", Type: FieldText, Label: "Button label", Default: "Buy now"},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeProductGrid, Name: "Product grid", Category: CategoryContent, PickKind: domain.PickProduct,
			PickFields: map[string]string{"id": "id", "name": "name", "price": "price", "imageUrl": "imageUrl", "url": "url"},
			Fields: []Field{
				{Name: "title", Type: FieldText, Label: "Title", Default: "Featured products"},
				{Name: "columns", Type: FieldSelect, Label: "Columns", Default: 2, Options: []Option{
					{Value: 2, Label: "Two"}, {Value: 3, Label: "Three"},
				}},
				{Name: "showPrice", Type: FieldCheckbox, Label: "Show prices", Default: true},
			},
			DefaultLayout: centered(16, 16),
		},
		{
			ID: TypeCollection, Name: "Collection", Category: CategoryContent, PickKind: domain.PickCollection,
			PickFields: map[string]string{"id": "collectionId", "title": "title", "url": "url", "imageUrl": "imageUrl"},
			Fields: []Field{
				{Name: "collectionId", Type: FieldText, Label: "Collection", Default: ""},
				{Name: "title", Type: FieldText, Label: "Title", Default: ""},
				{Name: "url", Type: FieldURL, Label: "Link", Default: ""},
				{Name: "imageUrl", Type: FieldImage, Label: "Image", Default: ""},
				{Name: "buttonText", Type: FieldText, Label: "Button label", Default: "View collection"},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeDiscount, Name: "Discount", Category: CategoryActions, PickKind: domain.PickDiscount,
			PickFields: map[string]string{"code": "code", "description": "description", "expiresAt": "expiresAt"},
			Fields: []Field{
				{Name: "code", Type: FieldText, Label: "Code", Default: "", Validation: &Validation{MaxLength: 64}},
				{Name: "description", Type: FieldText, Label: "Description", Default: ""},
				{Name: "showExpiry", Type: FieldCheckbox, Label: "Show expiry date", Default: false},
				{Name: "expiresAt", Type: FieldText, Label: "Expires at", Default: "",
					Conditional: &Conditional{Field: "showExpiry", Values: []any{true}}},
				{Name: "color", Type: FieldColor, Label: "Badge colour", Default: ""},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeSocial, Name: "Social links", Category: CategorySocial,
			Fields: []Field{
				{Name: "facebook", Type: FieldURL, Label: "Facebook", Default: ""},
				{Name: "instagram", Type: FieldURL, Label: "Instagram", Default: ""},
				{Name: "twitter", Type: FieldURL, Label: "X / Twitter", Default: ""},
				{Name: "tiktok", Type: FieldURL, Label: "TikTok", Default: ""},
				{Name: "youtube", Type: FieldURL, Label: "YouTube", Default: ""},
				{Name: "linkedin", Type: FieldURL, Label: "LinkedIn", Default: ""},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeContact, Name: "Contact", Category: CategorySocial,
			Fields: []Field{
				{Name: "email", Type: FieldText, Label: "Email", Default: ""},
				{Name: "phone", Type: FieldText, Label: "Phone", Default: ""},
				{Name: "address", Type: FieldTextarea, Label: "Address", Default: ""},
				{Name: "website", Type: FieldURL, Label: "Website", Default: ""},
			},
			DefaultLayout: centered(16, 24),
		},
		{
			ID: TypeFooter, Name: "Footer", Category: CategoryFooter, MaxPerDocument: 1,
			Fields: []Field{
				{Name: "customText", Type: FieldTextarea, Label: "Message", Default: ""},
				{Name: "showAddress", Type: FieldCheckbox, Label: "Show store address", Default: true},
				{Name: "unsubscribeText", Type: FieldText, Label: "Unsubscribe label", Default: "Unsubscribe",
					Validation: &Validation{Required: true}},
			},
			DefaultLayout: centered(24, 24),
		},
		{
			ID: TypeMenu, Name: "Menu", Category: CategoryNavigation,
			Fields: []Field{
				// One link per line: "Label | https://example.com".
				{Name: "links", Type: FieldTextarea, Label: "Links", Default: ""},
				{Name: "separator", Type: FieldText, Label: "Separator", Default: "|"},
			},
			DefaultLayout: centered(12, 24),
		},
	}
}

// Default is the registry of built-in block types.
var Default = MustNew(Builtin()...)
