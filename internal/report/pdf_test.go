package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/coverledger/internal/model"
)

func TestPolicyStatement(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := &model.Policy{
		ID:        7,
		Type:      "AUTO",
		Company:   "Acme Mutual",
		Premium:   129.50,
		StartDate: start,
		EndDate:   start.AddDate(1, 0, 0),
		Claims: []model.Claim{
			{Description: "windshield", Amount: 300, Status: model.ClaimApproved},
		},
	}
	payments := []model.Payment{
		{Amount: 129.50, Method: "card", PaidAt: start.AddDate(0, 1, 0)},
	}

	out, err := PolicyStatement("Ada Lovelace", policy, payments)
	if err != nil {
		t.Fatalf("PolicyStatement: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF, starts with %q", out[:min(8, len(out))])
	}
	if len(out) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(out))
	}
}
