package collab

import "testing"

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want Kind
	}{
		{"yes", KindApproved},
		{"Yes, proceed", KindApproved},
		{"OK", KindApproved},
		{"Proceed", KindApproved},
		{"approve", KindApproved},
		{"CONFIRM", KindApproved},
		{"  ok  ", KindApproved},
		{"no", KindRejected},
		{"No way", KindRejected},
		{"cancel", KindRejected},
		{"STOP", KindRejected},
		{"deny", KindRejected},
		{"use the staging config instead", KindInformational},
		{"maybe", KindInformational},
		{"", KindInformational},
		{"okay", KindInformational},
		{"yesterday it broke", KindInformational},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q): got %q, want %q", tt.text, got, tt.want)
		}
	}
}
