package records

import "time"

// MaxFutureWindow es el margen permitido hacia el futuro para la fecha del
// evento médico.
const MaxFutureWindow = 7 * 24 * time.Hour

// CheckDates valida las relaciones entre las fechas del registro. Es pura:
// recibe now explícito para que los tests sean deterministas.
//
// Orden de evaluación (gana el primer fallo):
//  1. date no puede superar now + 7 días.
//  2. nextVisitDate debe ser posterior a date.
//  3. nextVisitDate no puede estar en el pasado.
//
// Asume que si hasNextVisit es true, nextVisitDate viene presente; esa
// obligación la cubre la capa de validación sintáctica.
func CheckDates(date time.Time, hasNextVisit bool, nextVisitDate *time.Time, now time.Time) error {
	if date.After(now.Add(MaxFutureWindow)) {
		return ErrDateTooFar
	}

	if !hasNextVisit || nextVisitDate == nil {
		return nil
	}

	if !nextVisitDate.After(date) {
		return ErrNextVisitBeforeDate
	}
	if nextVisitDate.Before(now) {
		return ErrNextVisitInPast
	}
	return nil
}
