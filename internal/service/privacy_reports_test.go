package service

import "testing"

func TestBuildComplianceReport(t *testing.T) {
	counts := ComplianceCounts{
		Participants: 200,
		Consented:    180,
		Anonymized:   50,
		Withdrawn:    10,
		Completed:    120,
	}

	report := buildComplianceReport(counts)

	if report.Counts != counts {
		t.Errorf("counts = %+v", report.Counts)
	}
	if report.ConsentRate != 0.9 {
		t.Errorf("consent rate = %f, want 0.9", report.ConsentRate)
	}
	if report.AnonymizedRate != 0.25 {
		t.Errorf("anonymization rate = %f, want 0.25", report.AnonymizedRate)
	}
	if report.WithdrawalRate != 0.05 {
		t.Errorf("withdrawal rate = %f, want 0.05", report.WithdrawalRate)
	}
	if report.CompletionRate != 0.6 {
		t.Errorf("completion rate = %f, want 0.6", report.CompletionRate)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("generated_at must be stamped")
	}
}

func TestBuildComplianceReportEmptyStudy(t *testing.T) {
	report := buildComplianceReport(ComplianceCounts{})
	if report.ConsentRate != 0 || report.AnonymizedRate != 0 || report.WithdrawalRate != 0 || report.CompletionRate != 0 {
		t.Errorf("empty study must not divide by zero: %+v", report)
	}
}
