package varstore

import (
	"context"
	"errors"

	efilib "github.com/canonical/go-efilib"

	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
)

// EFIStore is the production Store backend: it reads and writes real
// firmware variables through github.com/canonical/go-efilib, namespaced
// under efi.MokVariableGUID. This is the only package in the module that
// talks to actual firmware state; everything else goes through the Store
// interface.
type EFIStore struct {
	guid efi.GUID
}

// NewEFIStore returns a Store backed by the firmware's real variable
// service, namespaced under efi.MokVariableGUID.
func NewEFIStore() *EFIStore {
	return &EFIStore{guid: efi.MokVariableGUID}
}

func (s *EFIStore) Get(_ context.Context, name string) (Variable, error) {
	data, attrs, err := efilib.ReadVariable(name, s.guid)
	if err != nil {
		if errors.Is(err, efilib.ErrVarNotExist) {
			return Variable{}, ErrNotFound
		}
		return Variable{}, mokerr.Wrap(mokerr.Storage, "read variable "+name, err)
	}
	return Variable{Attrs: efi.Attributes(attrs), Data: data}, nil
}

func (s *EFIStore) Set(_ context.Context, name string, attrs efi.Attributes, data []byte) error {
	if err := efilib.WriteVariable(name, s.guid, efilib.VariableAttributes(attrs), data); err != nil {
		return mokerr.Wrap(mokerr.Storage, "write variable "+name, err)
	}
	return nil
}

func (s *EFIStore) Append(_ context.Context, name string, attrs efi.Attributes, data []byte) error {
	appendAttrs := efilib.VariableAttributes(attrs | efi.AppendWrite)
	if err := efilib.WriteVariable(name, s.guid, appendAttrs, data); err != nil {
		return mokerr.Wrap(mokerr.Storage, "append variable "+name, err)
	}
	return nil
}

func (s *EFIStore) Delete(_ context.Context, name string) error {
	if err := efilib.WriteVariable(name, s.guid, 0, nil); err != nil {
		if errors.Is(err, efilib.ErrVarNotExist) {
			return nil
		}
		return mokerr.Wrap(mokerr.Storage, "delete variable "+name, err)
	}
	return nil
}
