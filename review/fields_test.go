package review

import "testing"

func TestReviewableFieldCatalog(t *testing.T) {
	fields := ReviewableFields()
	if len(fields) != 35 {
		t.Fatalf("catalog has %d fields, want 35", len(fields))
	}
	seen := make(map[string]bool, len(fields))
	for _, name := range fields {
		if seen[name] {
			t.Fatalf("duplicate field %q", name)
		}
		seen[name] = true
		if !IsReviewableField(name) {
			t.Fatalf("catalog field %q not reported reviewable", name)
		}
	}
}

func TestIsReviewableField(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"threat_type_l1", true},
		{"error_description", true},
		{"uas_outcome", true},
		{"remarks", true},
		{"flight_number", false},
		{"", false},
		{"THREAT_TYPE_L1", false},
	}
	for _, tc := range cases {
		if got := IsReviewableField(tc.name); got != tc.want {
			t.Fatalf("IsReviewableField(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseRoleFailSafe(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{"  MANAGER  ", RoleManager},
		{"researcher", RoleResearcher},
		{"annotator", RoleAnnotator},
		{"", RoleAnnotator},
		{"root", RoleAnnotator},
	}
	for _, tc := range cases {
		if got := ParseRole(tc.in); got != tc.want {
			t.Fatalf("ParseRole(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestItemStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ItemStatus
		want     bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusReviewed, true},
		{StatusReviewed, StatusSubmitted, true},
		{StatusDraft, StatusApproved, false},
		{StatusApproved, StatusSubmitted, false},
		{StatusApproved, StatusReviewed, false},
		{StatusReviewed, StatusApproved, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
