package models

import (
	"errors"
	"testing"

	"github.com/gainwell-gia/s2t_backend/utils"
)

func TestValidateSetting(t *testing.T) {
	cases := []struct {
		name    string
		section ConfigSection
		key     string
		value   any
		ok      bool
	}{
		{"known string", ConfigSectionDatabase, "warehouse_name", "my-warehouse", true},
		{"known boolean", ConfigSectionUI, "sidebar_expanded", false, true},
		{"text value", ConfigSectionAIModel, "default_prompt", "map {query_text}", true},
		{"string gets bool", ConfigSectionDatabase, "warehouse_name", true, false},
		{"boolean gets string", ConfigSectionUI, "sidebar_expanded", "yes", false},
		{"unknown key", ConfigSectionDatabase, "no_such_key", "x", false},
		{"unknown section", ConfigSection("billing"), "warehouse_name", "x", false},
	}
	for _, tc := range cases {
		err := validateSetting(tc.section, tc.key, tc.value)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s: expected validation error", tc.name)
			} else if !errors.Is(err, utils.ErrorValidation) {
				t.Errorf("%s: expected ErrorValidation, got %v", tc.name, err)
			}
		}
	}
}

func TestValidateConfigData_AllOrNothing(t *testing.T) {
	data := map[string]map[string]any{
		"database": {"warehouse_name": "wh-1"},
		"ui":       {"sidebar_expanded": "not-a-bool"},
	}
	if _, err := validateConfigData(data); err == nil {
		t.Fatalf("one bad entry must fail the whole batch")
	}
}

func TestValidateConfigData_DeterministicOrder(t *testing.T) {
	data := map[string]map[string]any{
		"ui":       {"theme_color": "#000000", "app_title": "S2T"},
		"database": {"warehouse_name": "wh-1"},
	}
	first, err := validateConfigData(data)
	if err != nil {
		t.Fatalf("validateConfigData: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(first))
	}
	// sections and keys come out sorted regardless of map iteration order
	if first[0].section != ConfigSectionDatabase ||
		first[1].key != "app_title" || first[2].key != "theme_color" {
		t.Fatalf("unexpected order: %+v", first)
	}
	for i := 0; i < 20; i++ {
		again, err := validateConfigData(data)
		if err != nil {
			t.Fatalf("validateConfigData: %v", err)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("order changed between runs at %d: %+v vs %+v", j, again[j], first[j])
			}
		}
	}
}

func TestConfigBaseline_CoversAllSections(t *testing.T) {
	for _, section := range AllConfigSections() {
		keys, ok := configBaseline[section]
		if !ok || len(keys) == 0 {
			t.Errorf("section %s has no baseline keys", section)
		}
		for key, spec := range keys {
			if err := validateSetting(section, key, spec.baseline); err != nil {
				t.Errorf("baseline value for %s.%s does not pass its own validation: %v", section, key, err)
			}
		}
	}
}
