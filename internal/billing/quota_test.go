package billing

import "testing"

func TestClassifyQuota(t *testing.T) {
	th := QuotaThresholds{Green: 20, Yellow: 10}

	cases := []struct {
		actual int
		want   QuotaStatus
	}{
		{25, QuotaGreen},
		{20, QuotaGreen},
		{19, QuotaYellow},
		{10, QuotaYellow},
		{9, QuotaRed},
		{0, QuotaRed},
	}
	for _, tc := range cases {
		if got := ClassifyQuota(tc.actual, th); got != tc.want {
			t.Fatalf("ClassifyQuota(%d) = %s, want %s", tc.actual, got, tc.want)
		}
	}
}
