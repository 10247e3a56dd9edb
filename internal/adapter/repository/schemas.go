package repository

import "github.com/moyogo/clld/pkg/filterexpr"

var listLanguagesSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"id": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "ID",
				filterexpr.OpIN: "IDs",
			},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Name",
				filterexpr.OpSW: "NamePrefix",
			},
		},
		"variant": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Variant"},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary:     "name",
		DefaultPrimaryDesc: false,
		FallbackKey:        "pk",
		FallbackDesc:       false,
		Fields: map[string]filterexpr.OrderField{
			"name":       {Expr: "name", Nulls: "last"},
			"id":         {Expr: "id", Nulls: "last"},
			"updated_at": {Expr: "updated_at", Nulls: "last"},
			"pk":         {Expr: "pk"},
		},
	},
}

var listParametersSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"id": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "ID",
				filterexpr.OpIN: "IDs",
			},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Name",
				filterexpr.OpSW: "NamePrefix",
			},
		},
		"variant": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Variant"},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary:     "name",
		DefaultPrimaryDesc: false,
		FallbackKey:        "pk",
		FallbackDesc:       false,
		Fields: map[string]filterexpr.OrderField{
			"name": {Expr: "name", Nulls: "last"},
			"id":   {Expr: "id", Nulls: "last"},
			"pk":   {Expr: "pk"},
		},
	},
}

var listValuesSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"id": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "ID"},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Name",
				filterexpr.OpSW: "NamePrefix",
			},
		},
		"variant": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Variant"},
		},
		"confidence": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Confidence"},
		},
		"frequency": {
			Kind: filterexpr.KindNumber,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpGTE: "FrequencyMin",
				filterexpr.OpLTE: "FrequencyMax",
			},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary:     "pk",
		DefaultPrimaryDesc: false,
		FallbackKey:        "id",
		FallbackDesc:       false,
		Fields: map[string]filterexpr.OrderField{
			"pk":        {Expr: "pk"},
			"id":        {Expr: "id", Nulls: "last"},
			"name":      {Expr: "name", Nulls: "last"},
			"frequency": {Expr: "frequency", Nulls: "last"},
		},
	},
}

var listContributionsSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"id": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "ID"},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Name",
				filterexpr.OpSW: "NamePrefix",
			},
		},
		"date": {
			Kind: filterexpr.KindTimestamp,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpGTE: "DateFrom",
				filterexpr.OpLTE: "DateTo",
			},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary:     "name",
		DefaultPrimaryDesc: false,
		FallbackKey:        "pk",
		FallbackDesc:       false,
		Fields: map[string]filterexpr.OrderField{
			"name": {Expr: "name", Nulls: "last"},
			"id":   {Expr: "id", Nulls: "last"},
			"date": {Expr: "date", Nulls: "last"},
			"pk":   {Expr: "pk"},
		},
	},
}

var listSourcesSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"id": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "ID",
				filterexpr.OpIN: "IDs",
			},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Name",
				filterexpr.OpSW: "NamePrefix",
			},
		},
		"author": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Author",
				filterexpr.OpSW: "AuthorPrefix",
			},
		},
		"year": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Year"},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary:     "name",
		DefaultPrimaryDesc: false,
		FallbackKey:        "pk",
		FallbackDesc:       false,
		Fields: map[string]filterexpr.OrderField{
			"name":   {Expr: "name", Nulls: "last"},
			"id":     {Expr: "id", Nulls: "last"},
			"author": {Expr: "author", Nulls: "last"},
			"year":   {Expr: "year", Nulls: "last"},
			"pk":     {Expr: "pk"},
		},
	},
}

var listUnitsSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"id": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "ID"},
		},
		"name": {
			Kind: filterexpr.KindString,
			Ops: map[filterexpr.Op]string{
				filterexpr.OpEQ: "Name",
				filterexpr.OpSW: "NamePrefix",
			},
		},
		"variant": {
			Kind: filterexpr.KindString,
			Ops:  map[filterexpr.Op]string{filterexpr.OpEQ: "Variant"},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary:     "name",
		DefaultPrimaryDesc: false,
		FallbackKey:        "pk",
		FallbackDesc:       false,
		Fields: map[string]filterexpr.OrderField{
			"name": {Expr: "name", Nulls: "last"},
			"id":   {Expr: "id", Nulls: "last"},
			"pk":   {Expr: "pk"},
		},
	},
}
