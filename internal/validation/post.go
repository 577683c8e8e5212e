package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"utvibe/internal/models"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 2000
	MaxTags              = 10
)

// ValidateTitle expects an already trimmed title.
func ValidateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("Title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("Description must not exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// NormalizeCategory maps an empty value to "other" and rejects unknown categories.
func NormalizeCategory(category string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return models.CategoryOther, nil
	}
	for _, known := range models.Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("Invalid category %q", category)
}

// ParseTags splits a comma separated list, trimming entries and dropping empties and repeats.
func ParseTags(raw string) ([]string, error) {
	tags := []string{}
	seen := map[string]struct{}{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > MaxTags {
		return nil, fmt.Errorf("A post can have at most %d tags", MaxTags)
	}
	return tags, nil
}

// ValidateCoordinates requires both or neither of latitude and longitude.
// It reports whether a location was supplied.
func ValidateCoordinates(lat, lng *float64) (bool, error) {
	if lat == nil && lng == nil {
		return false, nil
	}
	if lat == nil || lng == nil {
		return false, fmt.Errorf("Latitude and longitude must be provided together")
	}
	if *lat < -90 || *lat > 90 {
		return false, fmt.Errorf("Latitude must be between -90 and 90")
	}
	if *lng < -180 || *lng > 180 {
		return false, fmt.Errorf("Longitude must be between -180 and 180")
	}
	return true, nil
}
