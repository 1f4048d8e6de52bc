package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func companySchema(t *testing.T) *Model {
	t.Helper()
	m, err := New("tech companies", []FieldSpec{
		{Name: "name", Type: TypeString, Title: "Name", Description: "Company name"},
		{Name: "website", Type: TypeString, Format: FormatURI},
		{Name: "founded_year", Type: TypeInteger, Title: "Founded"},
	}, []string{"name", "website"})
	require.NoError(t, err)
	return m
}

func TestNew_Invariants(t *testing.T) {
	tests := []struct {
		name     string
		fields   []FieldSpec
		required []string
		wantErr  error
	}{
		{
			name:     "required must be declared",
			fields:   []FieldSpec{{Name: "name", Type: TypeString}},
			required: []string{"name", "industry"},
			wantErr:  ErrUnknownRequired,
		},
		{
			name:    "format only on strings",
			fields:  []FieldSpec{{Name: "size", Type: TypeInteger, Format: FormatURI}},
			wantErr: ErrFormatNotAllowed,
		},
		{
			name:    "duplicate names",
			fields:  []FieldSpec{{Name: "name", Type: TypeString}, {Name: "name", Type: TypeString}},
			wantErr: ErrDuplicateField,
		},
		{
			name:    "empty name",
			fields:  []FieldSpec{{Name: "", Type: TypeString}},
			wantErr: ErrEmptyFieldName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("", tt.fields, tt.required)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_DeduplicatesRequired(t *testing.T) {
	m, err := New("", []FieldSpec{{Name: "name", Type: TypeString}}, []string{"name", "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, m.Required())
}

func TestDescribeFields(t *testing.T) {
	m := companySchema(t)

	assert.Equal(t, []string{
		"name: string (required) - Company name",
		"website: string (required)",
		"founded_year: integer (optional) - Founded",
	}, m.DescribeFields())
}

func TestDescribeFields_IsStable(t *testing.T) {
	m := companySchema(t)
	first := m.DescribeFields()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.DescribeFields())
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	m := companySchema(t)
	fields := m.Fields()
	fields[0].Name = "mutated"

	f, ok := m.Field("name")
	require.True(t, ok)
	assert.Equal(t, "name", f.Name)
}

func TestNilModel_IsEmpty(t *testing.T) {
	var m *Model
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Fields())
	assert.Empty(t, m.Required())
	assert.Empty(t, m.DescribeFields())
	assert.False(t, m.IsRequired("name"))
	_, ok := m.Field("name")
	assert.False(t, ok)

	withName := m.WithRequired(FieldSpec{Name: "name", Type: TypeString})
	assert.Equal(t, []string{"name"}, withName.Required())
}

func TestWithRequired(t *testing.T) {
	t.Run("adds missing field first", func(t *testing.T) {
		m := MustNew("", []FieldSpec{{Name: "website", Type: TypeString}}, []string{"website"})
		got := m.WithRequired(FieldSpec{Name: "name", Type: TypeString})

		assert.Equal(t, []string{"name", "website"}, got.Required())
		assert.Equal(t, "name", got.Fields()[0].Name)
		assert.False(t, m.IsRequired("name"), "original is unchanged")
	})

	t.Run("marks existing optional field required", func(t *testing.T) {
		m := MustNew("", []FieldSpec{
			{Name: "website", Type: TypeString},
			{Name: "name", Type: TypeString, Title: "Company"},
		}, []string{"website"})
		got := m.WithRequired(FieldSpec{Name: "name", Type: TypeString})

		assert.Equal(t, []string{"name", "website"}, got.Required())
		f, _ := got.Field("name")
		assert.Equal(t, "Company", f.Title)
		assert.Equal(t, 2, got.Len())
	})

	t.Run("already required is unchanged", func(t *testing.T) {
		m := companySchema(t)
		got := m.WithRequired(FieldSpec{Name: "name", Type: TypeString})
		assert.Equal(t, m.Required(), got.Required())
		assert.Equal(t, m.DescribeFields(), got.DescribeFields())
	})
}

func TestJSONSchema_RoundTrip(t *testing.T) {
	m := companySchema(t)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "object", decoded["type"])
	assert.Equal(t, []interface{}{"name", "website"}, decoded["required"])
	props := decoded["properties"].(map[string]interface{})
	website := props["website"].(map[string]interface{})
	assert.Equal(t, "uri", website["format"])

	back, err := FromJSONSchema(data)
	require.NoError(t, err)
	assert.Equal(t, m.DescribeFields(), back.DescribeFields())
	assert.Equal(t, m.Required(), back.Required())
	assert.Equal(t, m.Title(), back.Title())
}

func TestFromJSONSchema_PreservesPropertyOrder(t *testing.T) {
	doc := `{"type":"object","properties":{"zeta":{"type":"string"},"alpha":{"type":"number"},"mid":{"type":"boolean"}}}`
	m, err := FromJSONSchema([]byte(doc))
	require.NoError(t, err)

	names := []string{}
	for _, f := range m.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestFromJSONSchema_Repairs(t *testing.T) {
	t.Run("required without properties", func(t *testing.T) {
		m, err := FromJSONSchema([]byte(`{"required":["name","industry"]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "industry"}, m.Required())
		f, ok := m.Field("industry")
		require.True(t, ok)
		assert.Equal(t, TypeString, f.Type)
	})

	t.Run("format dropped on non-string", func(t *testing.T) {
		m, err := FromJSONSchema([]byte(`{"properties":{"year":{"type":"integer","format":"date"}}}`))
		require.NoError(t, err)
		f, _ := m.Field("year")
		assert.Empty(t, f.Format)
	})

	t.Run("nullable type union", func(t *testing.T) {
		m, err := FromJSONSchema([]byte(`{"properties":{"size":{"type":["null","integer"]}}}`))
		require.NoError(t, err)
		f, _ := m.Field("size")
		assert.Equal(t, TypeInteger, f.Type)
	})

	t.Run("unknown types preserved", func(t *testing.T) {
		m, err := FromJSONSchema([]byte(`{"properties":{"when":{"type":"datetime"}}}`))
		require.NoError(t, err)
		f, _ := m.Field("when")
		assert.Equal(t, FieldType("datetime"), f.Type)
		assert.False(t, f.Type.Known())
	})

	t.Run("missing type defaults to string", func(t *testing.T) {
		m, err := FromJSONSchema([]byte(`{"properties":{"notes":{"description":"free text"}}}`))
		require.NoError(t, err)
		f, _ := m.Field("notes")
		assert.Equal(t, TypeString, f.Type)
	})
}

func TestFromJSONSchema_InvalidJSON(t *testing.T) {
	_, err := FromJSONSchema([]byte(`{"properties": [1, 2]}`))
	assert.Error(t, err)

	_, err = FromJSONSchema([]byte(`not json`))
	assert.Error(t, err)
}
