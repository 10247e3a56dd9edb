package filterexpr

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type listRequest struct {
	filter  string
	orderBy string
}

func (r listRequest) GetFilter() string  { return r.filter }
func (r listRequest) GetOrderBy() string { return r.orderBy }

type listLanguagesParams struct {
	OrderKeys

	ID           *string
	IDs          []string
	Name         *string
	NamePrefix   *string
	LatitudeMin  *float64
	LatitudeMax  *float64
	UpdatedAfter *time.Time
}

var languagesSchema = ResourceSchema{
	Filter: map[string]FilterField{
		"id": {
			Kind: KindString,
			Ops:  map[Op]string{OpEQ: "ID", OpIN: "IDs"},
		},
		"name": {
			Kind: KindString,
			Ops:  map[Op]string{OpEQ: "Name", OpSW: "NamePrefix"},
		},
		"latitude": {
			Kind: KindNumber,
			Ops:  map[Op]string{OpGTE: "LatitudeMin", OpLTE: "LatitudeMax"},
		},
		"update_time": {
			Kind: KindTimestamp,
			Ops:  map[Op]string{OpGTE: "UpdatedAfter"},
		},
	},
	Order: OrderSchema{
		DefaultPrimary: "name",
		FallbackKey:    "pk",
		Fields: map[string]OrderField{
			"name":     {Expr: "name", Nulls: "last"},
			"id":       {Expr: "id"},
			"latitude": {Expr: "latitude", Nulls: "last"},
			"pk":       {Expr: "pk"},
		},
	},
}

func TestBind_ListLanguages(t *testing.T) {
	var params listLanguagesParams
	stamp := "2025-01-01T00:00:00Z"
	req := listRequest{
		filter:  fmt.Sprintf("id == 'abk' && latitude >= 35 && name.startsWith('Abkh') && update_time >= timestamp('%s')", stamp),
		orderBy: "name desc, id",
	}

	if err := Bind(req, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}

	if params.ID == nil || *params.ID != "abk" {
		t.Fatalf("expected ID to be 'abk', got %v", params.ID)
	}
	if params.LatitudeMin == nil || *params.LatitudeMin != 35 {
		t.Fatalf("expected LatitudeMin to be 35, got %v", params.LatitudeMin)
	}
	if params.LatitudeMax != nil {
		t.Fatalf("expected LatitudeMax to be nil, got %v", params.LatitudeMax)
	}
	if params.NamePrefix == nil || *params.NamePrefix != "Abkh" {
		t.Fatalf("expected NamePrefix to be 'Abkh', got %v", params.NamePrefix)
	}

	wantTime, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if params.UpdatedAfter == nil || !params.UpdatedAfter.Equal(wantTime) {
		t.Fatalf("expected UpdatedAfter %v, got %v", wantTime, params.UpdatedAfter)
	}

	wantOrder := OrderKeys{PrimaryKey: "name", PrimaryDesc: true, SecondaryKey: "id"}
	if params.OrderKeys != wantOrder {
		t.Fatalf("expected order %+v, got %+v", wantOrder, params.OrderKeys)
	}
}

func TestBind_Defaults(t *testing.T) {
	var params listLanguagesParams
	if err := Bind(listRequest{}, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}

	if params.ID != nil || params.Name != nil || params.NamePrefix != nil {
		t.Fatalf("expected empty filter to leave params untouched, got %+v", params)
	}
	wantOrder := OrderKeys{PrimaryKey: "name", SecondaryKey: "pk"}
	if params.OrderKeys != wantOrder {
		t.Fatalf("expected default order %+v, got %+v", wantOrder, params.OrderKeys)
	}
}

func TestBind_NumberBounds(t *testing.T) {
	var params listLanguagesParams
	req := listRequest{filter: "latitude >= -10.5 && latitude <= 44"}

	if err := Bind(req, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}

	if params.LatitudeMin == nil || *params.LatitudeMin != -10.5 {
		t.Fatalf("expected LatitudeMin -10.5, got %v", params.LatitudeMin)
	}
	if params.LatitudeMax == nil || *params.LatitudeMax != 44 {
		t.Fatalf("expected LatitudeMax 44, got %v", params.LatitudeMax)
	}
}

func TestBind_DateOnlyTimestamp(t *testing.T) {
	var params listLanguagesParams
	req := listRequest{filter: "update_time >= timestamp('2011-04-28')"}

	if err := Bind(req, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}

	want := time.Date(2011, time.April, 28, 0, 0, 0, 0, time.UTC)
	if params.UpdatedAfter == nil || !params.UpdatedAfter.Equal(want) {
		t.Fatalf("expected UpdatedAfter %v, got %v", want, params.UpdatedAfter)
	}
}

func TestBind_GlobalStartsWith(t *testing.T) {
	var params listLanguagesParams
	req := listRequest{filter: "startsWith(name, 'Abkh')"}

	if err := Bind(req, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	if params.NamePrefix == nil || *params.NamePrefix != "Abkh" {
		t.Fatalf("expected NamePrefix 'Abkh', got %v", params.NamePrefix)
	}
}

func TestBind_InOperator(t *testing.T) {
	var params listLanguagesParams
	req := listRequest{filter: "id in ['abk', 'kbd']"}

	if err := Bind(req, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}

	want := []string{"abk", "kbd"}
	if !reflect.DeepEqual(params.IDs, want) {
		t.Fatalf("expected IDs %v, got %v", want, params.IDs)
	}
}

func TestBind_CustomSetter(t *testing.T) {
	type withPGParams struct {
		OrderKeys

		Glottocode pgtype.Text
	}

	schema := ResourceSchema{
		Filter: map[string]FilterField{
			"glottocode": {
				Kind: KindString,
				Ops:  map[Op]string{OpEQ: "Glottocode"},
				Setter: func(field reflect.Value, v any) error {
					str, ok := v.(string)
					if !ok {
						return fmt.Errorf("expected string, got %T", v)
					}
					field.Set(reflect.ValueOf(pgtype.Text{String: str, Valid: true}))
					return nil
				},
			},
		},
		Order: OrderSchema{
			DefaultPrimary: "glottocode",
			FallbackKey:    "pk",
			Fields: map[string]OrderField{
				"glottocode": {Expr: "glottocode"},
				"pk":         {Expr: "pk"},
			},
		},
	}

	var params withPGParams
	if err := Bind(listRequest{filter: "glottocode == 'abkh1244'"}, &params, schema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	if !params.Glottocode.Valid || params.Glottocode.String != "abkh1244" {
		t.Fatalf("expected glottocode abkh1244, got %+v", params.Glottocode)
	}
}

func TestBind_FilterErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   string
	}{
		{"unsupported field", "family == 'NWC'", "not allowed"},
		{"unsupported operator", "id >= 'a'", "operator"},
		{"bad literal type", "id == 7", "expected string"},
		{"bad logical op", "id == 'abk' || id == 'kbd'", "only AND"},
		{"non literal", "latitude <= longitude", "right-hand side"},
		{"bad timestamp", "update_time >= timestamp('April 2011')", "not RFC3339"},
		{"empty in list", "id in []", "must not be empty"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var params listLanguagesParams
			err := Bind(listRequest{filter: tc.filter}, &params, languagesSchema)
			if err == nil {
				t.Fatalf("expected error for %q", tc.filter)
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tc.want)) {
				t.Fatalf("expected error to contain %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBind_ListWrongType(t *testing.T) {
	var params listLanguagesParams
	err := Bind(listRequest{filter: "id in [1]"}, &params, languagesSchema)
	if err == nil || !strings.Contains(err.Error(), "list literal elements must be strings") {
		t.Fatalf("expected list literal error, got %v", err)
	}
}

func TestBind_NilBinding(t *testing.T) {
	var params *listLanguagesParams
	if err := Bind(listRequest{filter: "id == 'abk'"}, params, languagesSchema); err == nil {
		t.Fatalf("expected error when params is nil pointer")
	}
}

func TestBind_NamedOrderFields(t *testing.T) {
	// Params without an embedded OrderKeys fall back to the four
	// individually named fields.
	type flatParams struct {
		PrimaryKey    string
		PrimaryDesc   bool
		SecondaryKey  string
		SecondaryDesc bool

		Name *string
	}

	var params flatParams
	req := listRequest{filter: "name == 'Abkhaz'", orderBy: "id desc"}
	if err := Bind(req, &params, languagesSchema); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}

	if params.Name == nil || *params.Name != "Abkhaz" {
		t.Fatalf("expected Name 'Abkhaz', got %v", params.Name)
	}
	if params.PrimaryKey != "id" || !params.PrimaryDesc {
		t.Fatalf("expected primary order id desc, got %s desc=%v", params.PrimaryKey, params.PrimaryDesc)
	}
	if params.SecondaryKey != "pk" || params.SecondaryDesc {
		t.Fatalf("expected secondary order pk asc, got %s desc=%v", params.SecondaryKey, params.SecondaryDesc)
	}
}
