package enums

import "fmt"

// ServiceType is the kind of help requested by an inquiry.
type ServiceType string

const (
	ServiceTypeQuiz       ServiceType = "quiz"
	ServiceTypeExam       ServiceType = "exam"
	ServiceTypeClass      ServiceType = "class"
	ServiceTypeAssignment ServiceType = "assignment"
	ServiceTypeProject    ServiceType = "project"
)

var validServiceTypes = []ServiceType{
	ServiceTypeQuiz,
	ServiceTypeExam,
	ServiceTypeClass,
	ServiceTypeAssignment,
	ServiceTypeProject,
}

// ServiceTypes returns every service type in declaration order.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}

func (s ServiceType) String() string {
	return string(s)
}

func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}

// Urgency captures how soon the submitter needs the work.
type Urgency string

const (
	UrgencyUrgent   Urgency = "urgent"
	UrgencyNormal   Urgency = "normal"
	UrgencyFlexible Urgency = "flexible"
)

var validUrgencies = []Urgency{
	UrgencyUrgent,
	UrgencyNormal,
	UrgencyFlexible,
}

// Urgencies returns every urgency level in declaration order.
func Urgencies() []Urgency {
	out := make([]Urgency, len(validUrgencies))
	copy(out, validUrgencies)
	return out
}

func (u Urgency) String() string {
	return string(u)
}

func (u Urgency) IsValid() bool {
	for _, candidate := range validUrgencies {
		if candidate == u {
			return true
		}
	}
	return false
}

func ParseUrgency(value string) (Urgency, error) {
	for _, candidate := range validUrgencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid urgency %q", value)
}

// ClientType distinguishes returning customers.
type ClientType string

const (
	ClientTypeFirstTime ClientType = "first-time"
	ClientTypeRepeat    ClientType = "repeat"
)

func (c ClientType) IsValid() bool {
	return c == ClientTypeFirstTime || c == ClientTypeRepeat
}

func ParseClientType(value string) (ClientType, error) {
	c := ClientType(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid client type %q", value)
	}
	return c, nil
}
