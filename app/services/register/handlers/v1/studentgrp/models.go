package studentgrp

import "github.com/ardanlabs/register/business/core/student"

// AppStudent represents a student record returned to the client.
type AppStudent struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func toAppStudent(s student.Student) AppStudent {
	return AppStudent{
		ID:   s.ID,
		Name: s.Name,
	}
}

func toAppStudents(students []student.Student) []AppStudent {
	items := make([]AppStudent, len(students))
	for i, s := range students {
		items[i] = toAppStudent(s)
	}
	return items
}

// AppState represents the view state returned to the client.
type AppState struct {
	Phase    string       `json:"phase"`
	Students []AppStudent `json:"students"`
	Loaded   bool         `json:"loaded"`
	Total    uint64       `json:"total"`
	Searched *AppStudent  `json:"searched,omitempty"`
	Loading  bool         `json:"loading"`
	Error    string       `json:"error,omitempty"`
	Account  string       `json:"account,omitempty"`
	Contract string       `json:"contract,omitempty"`
}

func toAppState(s student.State) AppState {
	as := AppState{
		Phase:    string(s.Phase),
		Students: toAppStudents(s.Students),
		Loaded:   s.Loaded,
		Total:    s.Total,
		Loading:  s.Loading,
		Error:    s.Err,
		Account:  s.Account,
		Contract: s.Contract,
	}

	if s.Searched != nil {
		found := toAppStudent(*s.Searched)
		as.Searched = &found
	}

	return as
}

// AppNewStudent contains information needed to register a student.
type AppNewStudent struct {
	Name string `json:"name" validate:"required"`
}
