package header

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listingMarkers = []string{"título", "sku"}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  TÍTULO\n":       "título",
		"Título":           "título",
		"\r\nDescripción ": "descripción",
		"SKU":              "sku",
		"   ":              "",
		"Multi\nLine Name": "multiline name",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input %q", input)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "  TÍTULO\n", "Straße", "ÀÉÎÕÜ", "\r\n  mixed Case \t", "ǅ", "SKU-123"}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestNormalizeValueCoercesNonText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "42", NormalizeValue(42))
	assert.Equal(t, "3.5", NormalizeValue(3.5))
	assert.Equal(t, "", NormalizeValue(nil))
	assert.Equal(t, "true", NormalizeValue(true))
}

func TestLocate_BannerRowsBeforeHeader(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"Plantilla de publicaciones", nil, nil},
		{"Completa los campos obligatorios", "", ""},
		{"SKU", "Título", "Descripción"},
		{"A-1", "Antena", "Antena 5GHz"},
	}

	m, err := Locate(rows, listingMarkers)
	require.NoError(t, err)
	assert.Equal(t, 2, m.HeaderRow())
	assert.Equal(t, []Column{
		{Name: "SKU", Index: 0},
		{Name: "Título", Index: 1},
		{Name: "Descripción", Index: 2},
	}, m.Columns())
}

func TestLocate_FirstMatchWins(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"banner"},
		{"SKU", "Precio"},
		{"Título", "SKU", "Color"},
	}

	m, err := Locate(rows, listingMarkers)
	require.NoError(t, err)
	assert.Equal(t, 1, m.HeaderRow())
	assert.Equal(t, []string{"SKU", "Precio"}, m.Names())
}

func TestLocate_FallsBackToFirstRow(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"Name", "Color"},
		{"Antena", "Negro"},
	}

	m, err := Locate(rows, listingMarkers)
	require.NoError(t, err)
	assert.Equal(t, 0, m.HeaderRow())
	assert.Equal(t, []string{"Name", "Color"}, m.Names())
}

func TestLocate_IsDeterministic(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"", "x"},
		{" SKU ", nil, "Título", "Color", "Color"},
	}

	first, err := Locate(rows, listingMarkers)
	require.NoError(t, err)
	second, err := Locate(rows, listingMarkers)
	require.NoError(t, err)
	assert.Equal(t, first.Columns(), second.Columns())
	assert.Equal(t, first.HeaderRow(), second.HeaderRow())
}

func TestLocate_DuplicateNamesLastWriteWins(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"SKU", "Color", "Título", "Color "})
	col, ok := m.Index("Color")
	require.True(t, ok)
	assert.Equal(t, 3, col)
	assert.Equal(t, []string{"SKU", "Color", "Título"}, m.Names())
	assert.Equal(t, []string{"Color"}, m.Duplicates())

	assert.Empty(t, FromRow([]any{"SKU", "Color"}).Duplicates())
}

func TestLocate_Errors(t *testing.T) {
	t.Parallel()

	_, err := Locate(nil, listingMarkers)
	assert.ErrorIs(t, err, ErrNoCandidateRows)

	_, err = Locate([][]any{{"", nil, "  "}}, listingMarkers)
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestMapRequire(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"SKU", "Título del producto", "Descripción"})
	names, err := m.Require([]string{"título", "titulo"}, []string{"descripción", "descripcion"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Título del producto", "Descripción"}, names)

	_, err = m.Require([]string{"precio"})
	assert.True(t, errors.Is(err, ErrHeaderNotFound))
}

func TestMaterialize(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"SKU", "Título", "", "Precio", "Stock"})
	record := Materialize(m, []any{"A-1", "  ", nil, 1250.5})

	assert.Equal(t, Record{
		"SKU":    "A-1",
		"Título": "",
		"Precio": "1250.5",
		"Stock":  "",
	}, record)
	assert.False(t, record.Blank())
	assert.True(t, Materialize(m, []any{" ", nil}).Blank())
}

func TestResolveWrite_FuzzyName(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"SKU", "Título", "Descripción"})
	col, value, err := ResolveWrite(m, "  TÍTULO\n", "Nuevo")
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	assert.Equal(t, "Nuevo", value)
}

func TestResolveWrite_FirstKeyWinsOnNormalizedCollision(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"color", "COLOR"})
	col, _, err := ResolveWrite(m, "Color", "Rojo")
	require.NoError(t, err)
	assert.Equal(t, 0, col)
}

func TestResolveWrite_NotFound(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"SKU"})
	_, _, err := ResolveWrite(m, "Marca", "Sony")
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, _, err = ResolveWrite(m, "   ", "x")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestResolveWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	m := FromRow([]any{"SKU", "Título", "Descripción", "Marca"})
	for _, name := range m.Names() {
		row := make([]any, m.MaxIndex()+1)
		col, value, err := ResolveWrite(m, "  "+name+"\n", "value for "+name)
		require.NoError(t, err)
		row[col] = value

		assert.Equal(t, "value for "+name, Materialize(m, row)[name])
	}
}

func TestUpdatesJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	var updates Updates
	require.NoError(t, json.Unmarshal([]byte(`{"Marca":"Sony","Color":"Negro","Stock":12,"Nota":null}`), &updates))
	assert.Equal(t, []string{"Marca", "Color", "Stock", "Nota"}, updates.Names())

	stock, ok := updates.Get("Stock")
	require.True(t, ok)
	assert.Equal(t, "12", stock)

	encoded, err := json.Marshal(updates)
	require.NoError(t, err)
	assert.Equal(t, `{"Marca":"Sony","Color":"Negro","Stock":"12","Nota":""}`, string(encoded))

	assert.Error(t, json.Unmarshal([]byte(`{"Marca":{"x":1}}`), &updates))
	assert.Error(t, json.Unmarshal([]byte(`["Marca"]`), &updates))
}
