package records

type RecordType string

const (
	RecordTypeVaccine      RecordType = "vaccine"
	RecordTypeConsultation RecordType = "consultation"
	RecordTypeDeworming    RecordType = "deworming"
	RecordTypeAnalysis     RecordType = "analysis"
	RecordTypeOther        RecordType = "other"
)

// IsValid indica si el tipo pertenece a la enumeración cerrada.
func (t RecordType) IsValid() bool {
	switch t {
	case RecordTypeVaccine, RecordTypeConsultation, RecordTypeDeworming,
		RecordTypeAnalysis, RecordTypeOther:
		return true
	}
	return false
}
