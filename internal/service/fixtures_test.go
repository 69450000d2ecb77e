package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/consult-assist-server/internal/domain"
)

func newTestLogger(t *testing.T) *logrus.Logger {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return logger
}

func diabeticProfile() *domain.PatientProfile {
	return &domain.PatientProfile{
		ID:         "d1",
		Name:       "Diabetes Only",
		Age:        50,
		RiskLevel:  domain.RISK_MEDIUM,
		Conditions: []string{domain.CONDITION_TYPE2_DIABETES},
	}
}

func rajeshProfile() *domain.PatientProfile {
	return &domain.PatientProfile{
		ID:         "1",
		Name:       "Rajesh Kumar",
		Age:        58,
		RiskLevel:  domain.RISK_HIGH,
		Conditions: []string{domain.CONDITION_TYPE2_DIABETES, domain.CONDITION_HYPERTENSION},
		Vitals:     map[string]string{"bp": "145/92", "glucose": "180 mg/dL", "weight": "78 kg"},
		PriorVisits: []domain.PriorVisit{
			{Date: "2024-12-15", Complaints: "Frequent urination, fatigue", Diagnosis: "Uncontrolled diabetes"},
			{Date: "2024-11-20", Complaints: "Headache, dizziness", Diagnosis: "Hypertension monitoring"},
		},
		LastVisit:       "2024-12-15",
		AppointmentTime: "9:00 AM",
	}
}

func ruleCodes(suggestions []domain.Suggestion) []string {
	codes := make([]string, len(suggestions))
	for i, s := range suggestions {
		codes[i] = s.RuleCode
	}
	return codes
}
