package parser

import (
	"regexp"
	"strings"
)

// ParsedEntry is a timesheet description with inline metadata extracted.
type ParsedEntry struct {
	Description string
	Project     string
	Activity    string
	Tags        []string
	Duration    int // seconds, 0 when no ~duration token was given
	Errors      []string
}

var (
	tagPattern      = regexp.MustCompile(`(?:^|\s)#([\p{L}0-9_,-]+)`)
	projectPattern  = regexp.MustCompile(`(?:^|\s)@([\p{L}0-9_.-]+)`)
	activityPattern = regexp.MustCompile(`(?:^|\s)\+([\p{L}0-9_.-]+)`)
	durationPattern = regexp.MustCompile(`(?:^|\s)~(\S+)`)
)

// ParseDescription extracts metadata from a description written in the smart syntax
// "Fix login #bug,auth @website +development ~1h30m". Underscores in project and
// activity names stand for spaces.
func ParseDescription(input string) ParsedEntry {
	result := ParsedEntry{Tags: []string{}, Errors: []string{}}

	for _, match := range tagPattern.FindAllStringSubmatch(input, -1) {
		for _, tag := range strings.Split(match[1], ",") {
			if tag = strings.TrimSpace(tag); tag != "" && !contains(result.Tags, tag) {
				result.Tags = append(result.Tags, tag)
			}
		}
	}
	input = tagPattern.ReplaceAllString(input, " ")

	if m := projectPattern.FindAllStringSubmatch(input, -1); len(m) > 0 {
		result.Project = strings.ReplaceAll(m[0][1], "_", " ")
		if len(m) > 1 {
			result.Errors = append(result.Errors, "only one @project is allowed")
		}
		input = projectPattern.ReplaceAllString(input, " ")
	}

	if m := activityPattern.FindAllStringSubmatch(input, -1); len(m) > 0 {
		result.Activity = strings.ReplaceAll(m[0][1], "_", " ")
		if len(m) > 1 {
			result.Errors = append(result.Errors, "only one +activity is allowed")
		}
		input = activityPattern.ReplaceAllString(input, " ")
	}

	if m := durationPattern.FindStringSubmatch(input); len(m) > 1 {
		seconds, err := ParseDuration(m[1])
		if err != nil {
			result.Errors = append(result.Errors, "invalid duration '"+m[1]+"': "+err.Error())
		} else {
			result.Duration = seconds
		}
		input = durationPattern.ReplaceAllString(input, " ")
	}

	result.Description = strings.Join(strings.Fields(input), " ")
	return result
}

// Valid reports whether parsing produced no errors.
func (p ParsedEntry) Valid() bool {
	return len(p.Errors) == 0
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
