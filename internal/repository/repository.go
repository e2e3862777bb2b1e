package repository

import (
	"gatepass/internal/database"
)

type Repositories struct {
	Registrations *RegistrationRepository
	Members       *MemberRepository
	Attendance    *AttendanceRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Registrations: NewRegistrationRepository(db),
		Members:       NewMemberRepository(db),
		Attendance:    NewAttendanceRepository(db),
	}
}
