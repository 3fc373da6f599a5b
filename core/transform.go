package core

// TransformFuncs adapts plain functions to Transformer.
type TransformFuncs[C any, E Entry, U any] struct {
	Create func(input C) (E, error)
	Update func(id string, input U) (E, error)
}

func (f TransformFuncs[C, E, U]) FromCreate(input C) (E, error) {
	if f.Create == nil {
		var zero E
		return zero, InternalError("core: create transform is not configured")
	}
	return f.Create(input)
}

func (f TransformFuncs[C, E, U]) FromUpdate(id string, input U) (E, error) {
	if f.Update == nil {
		var zero E
		return zero, InternalError("core: update transform is not configured")
	}
	return f.Update(id, input)
}

type OwnedTransformFuncs[C any, E OwnedEntry, U any] struct {
	Create func(ownerID string, input C) (E, error)
	Update func(ownerID, id string, input U) (E, error)
}

func (f OwnedTransformFuncs[C, E, U]) FromCreate(ownerID string, input C) (E, error) {
	if f.Create == nil {
		var zero E
		return zero, InternalError("core: create transform is not configured")
	}
	return f.Create(ownerID, input)
}

func (f OwnedTransformFuncs[C, E, U]) FromUpdate(ownerID, id string, input U) (E, error) {
	if f.Update == nil {
		var zero E
		return zero, InternalError("core: update transform is not configured")
	}
	return f.Update(ownerID, id, input)
}
