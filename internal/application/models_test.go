package application

import (
	"reflect"
	"testing"
)

func TestParseParticipants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: []string{}},
		{raw: "a@x", want: []string{"a@x"}},
		{raw: " a@x , b@x,,a@x ", want: []string{"a@x", "b@x"}},
	}
	for _, tc := range cases {
		if got := ParseParticipants(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseParticipants(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestFormatParticipants(t *testing.T) {
	t.Parallel()

	if got := FormatParticipants([]string{"a@x", " b@x", "a@x", ""}); got != "a@x,b@x" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestAuditActionString(t *testing.T) {
	t.Parallel()

	if AuditJoin.String() != "JOIN" || AuditLeave.String() != "LEAVE" || AuditTimeout.String() != "TIMEOUT" {
		t.Fatalf("unexpected action names")
	}
	if AuditAction(9).String() != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN for unmapped action")
	}
}
