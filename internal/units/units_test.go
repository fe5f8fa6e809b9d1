package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUnits_SeedsEmptyRow(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want ConversionUnit
	}{
		{"set", TypeSet, ConversionUnit{ChildItemID: ptr[int64](0), Quantity: ptr(1.0)}},
		{"not set", TypeNotSet, ConversionUnit{PurchaseUOMID: ptr[int64](0), BaseUOMID: ptr[int64](0), ConversionFactor: ptr(1.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.InitializeUnits(nil, tt.typ)
			require.Len(t, s.Units(), 1)
			assert.Equal(t, tt.want, s.Units()[0])
		})
	}
}

func TestInitializeUnits_CopiesInput(t *testing.T) {
	in := []ConversionUnit{{ChildItemID: ptr[int64](4), Quantity: ptr(2.0)}}
	s := New()
	s.InitializeUnits(in, TypeSet)
	in[0] = ConversionUnit{}
	assert.Equal(t, int64(4), *s.Units()[0].ChildItemID)
}

func TestAddThenRemove(t *testing.T) {
	s := New()
	s.InitializeUnits([]ConversionUnit{{ChildItemID: ptr[int64](1), Quantity: ptr(1.0)}}, TypeSet)
	s.RemoveUnit(0)
	s.AddUnit(TypeSet)
	s.RemoveUnit(0)
	assert.Empty(t, s.Units())
}

func TestAddThenRemove_FreshStore(t *testing.T) {
	s := New()
	s.AddUnit(TypeSet)
	require.Len(t, s.Units(), 1)
	s.RemoveUnit(0)
	assert.Empty(t, s.Units())
}

func TestRemoveUnit_OutOfRange(t *testing.T) {
	s := New()
	s.InitializeUnits(nil, TypeNotSet)
	s.RemoveUnit(3)
	s.RemoveUnit(-1)
	assert.Len(t, s.Units(), 1)
}

func TestUpdateUnit(t *testing.T) {
	s := New()
	s.InitializeUnits(nil, TypeSet)
	s.AddUnit(TypeSet)
	before := s.Units()

	s.UpdateUnit(5, FieldQuantity, 3)
	assert.Equal(t, before, s.Units(), "out of range update is a no-op")

	s.UpdateUnit(1, FieldQuantity, 3)
	s.UpdateUnit(1, FieldChildItem, 17)
	got := s.Units()
	assert.Equal(t, 3.0, *got[1].Quantity)
	assert.Equal(t, int64(17), *got[1].ChildItemID)
	assert.Equal(t, 1.0, *before[1].Quantity, "earlier snapshot untouched")
}

func TestReset_DoesNotReseed(t *testing.T) {
	s := New()
	s.InitializeUnits(nil, TypeSet)
	s.Reset()
	assert.Empty(t, s.Units())
}

func TestValidate(t *testing.T) {
	s := New()
	s.InitializeUnits(nil, TypeNotSet)

	err := s.Validate(TypeNotSet)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "row 1")

	s.UpdateUnit(0, FieldPurchaseUOM, 2)
	s.UpdateUnit(0, FieldBaseUOM, 1)
	s.UpdateUnit(0, FieldConversionFactor, 12)
	assert.NoError(t, s.Validate(TypeNotSet))

	s.UpdateUnit(0, FieldConversionFactor, 0)
	assert.ErrorIs(t, s.Validate(TypeNotSet), ErrNotPositive)
}

func TestUpdateUnit_IgnoresNonFinite(t *testing.T) {
	s := New()
	s.InitializeUnits(nil, TypeNotSet)
	s.UpdateUnit(0, FieldConversionFactor, 12)

	s.UpdateUnit(0, FieldConversionFactor, math.NaN())
	s.UpdateUnit(0, FieldPurchaseUOM, math.Inf(1))

	row := s.Units()[0]
	require.NotNil(t, row.ConversionFactor)
	assert.Equal(t, 12.0, *row.ConversionFactor)
	assert.Nil(t, row.PurchaseUOMID)
}

func TestPayload(t *testing.T) {
	s := New()
	data, err := s.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	s.InitializeUnits(nil, TypeSet)
	data, err = s.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"child_item_id":0,"quantity":1}]`, string(data))
}
