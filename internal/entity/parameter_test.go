package entity

import "testing"

func groupedPairs(values []*Value) (langs []*Language, runs [][]*Value) {
	for lang, run := range GroupValuesByLanguage(values) {
		langs = append(langs, lang)
		runs = append(runs, run)
	}
	return langs, runs
}

func TestGroupValuesByLanguage(t *testing.T) {
	abk := &Language{Base: Base{PK: 1}, IDNameDescription: IDNameDescription{ID: "abk"}}
	kbd := &Language{Base: Base{PK: 2}, IDNameDescription: IDNameDescription{ID: "kbd"}}

	values := []*Value{
		{Base: Base{PK: 10}, LanguagePK: 1, Language: abk},
		{Base: Base{PK: 11}, LanguagePK: 1, Language: abk},
		{Base: Base{PK: 12}, LanguagePK: 2, Language: kbd},
	}

	langs, runs := groupedPairs(values)
	if len(langs) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(langs))
	}
	if langs[0] != abk || len(runs[0]) != 2 {
		t.Fatalf("first group: lang %v, %d values", langs[0], len(runs[0]))
	}
	if langs[1] != kbd || len(runs[1]) != 1 || runs[1][0].PK != 12 {
		t.Fatalf("second group: lang %v, values %+v", langs[1], runs[1])
	}
}

func TestGroupValuesByLanguageSplitsNonConsecutiveRuns(t *testing.T) {
	values := []*Value{
		{Base: Base{PK: 10}, LanguagePK: 1},
		{Base: Base{PK: 11}, LanguagePK: 2},
		{Base: Base{PK: 12}, LanguagePK: 1},
	}

	langs, runs := groupedPairs(values)
	if len(langs) != 3 {
		t.Fatalf("expected interleaved input to yield 3 runs, got %d", len(runs))
	}
	for i, run := range runs {
		if len(run) != 1 {
			t.Fatalf("run %d: expected single value, got %d", i, len(run))
		}
	}
	// language side was not loaded on these values
	if langs[0] != nil {
		t.Fatalf("expected nil language for unloaded association, got %v", langs[0])
	}
}

func TestGroupValuesByLanguageStopsEarly(t *testing.T) {
	values := []*Value{
		{Base: Base{PK: 10}, LanguagePK: 1},
		{Base: Base{PK: 11}, LanguagePK: 2},
	}

	seen := 0
	for range GroupValuesByLanguage(values) {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("expected a single yielded group, got %d", seen)
	}
}

func TestGroupValuesByLanguageEmpty(t *testing.T) {
	langs, _ := groupedPairs(nil)
	if len(langs) != 0 {
		t.Fatalf("expected no groups for empty input, got %d", len(langs))
	}
}
