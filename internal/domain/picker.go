package domain

import "context"

// PickKind names the collaborator that feeds a block's content.
type PickKind string

const (
	PickProduct    PickKind = "product"
	PickDiscount   PickKind = "discount"
	PickCollection PickKind = "collection"
	PickImage      PickKind = "image"
)

// PickedRecord is the opaque record a picker returns: an id plus display
// fields. Only presence of fields is relied upon.
type PickedRecord map[string]any

// ID returns the record identifier, or "" when absent.
func (r PickedRecord) ID() string {
	return Content(r).String("id")
}

// Picker resolves a single selection into a record.
type Picker interface {
	Pick(ctx context.Context, ref string) (PickedRecord, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, ref string) (PickedRecord, error)

func (f PickerFunc) Pick(ctx context.Context, ref string) (PickedRecord, error) {
	return f(ctx, ref)
}
