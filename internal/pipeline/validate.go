// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"presently/internal/models"
)

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

func validateTheme(t models.Theme) error {
	required := []struct {
		name  string
		value string
	}{
		{"occasion", t.Occasion},
		{"interest", t.Interest},
		{"ageGroup", t.AgeGroup},
		{"budgetRange", t.BudgetRange},
		{"style", t.Style},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.name)
		}
		if utf8.RuneCountInString(f.value) > maxFieldLen {
			return fmt.Errorf("%s must be at most %d characters", f.name, maxFieldLen)
		}
	}
	if utf8.RuneCountInString(t.Profession) > maxFieldLen {
		return fmt.Errorf("profession must be at most %d characters", maxFieldLen)
	}
	if utf8.RuneCountInString(t.Notes) > maxNotesLen {
		return fmt.Errorf("notes must be at most %d characters", maxNotesLen)
	}
	return nil
}

func trimTheme(t models.Theme) models.Theme {
	return models.Theme{
		Occasion:    strings.TrimSpace(t.Occasion),
		Interest:    strings.TrimSpace(t.Interest),
		AgeGroup:    strings.TrimSpace(t.AgeGroup),
		BudgetRange: strings.TrimSpace(t.BudgetRange),
		Style:       strings.TrimSpace(t.Style),
		Profession:  strings.TrimSpace(t.Profession),
		Notes:       strings.TrimSpace(t.Notes),
	}
}

func htmlAttr(s string) string {
	return html.EscapeString(s)
}
