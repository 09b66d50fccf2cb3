package staffservice

// StaffMember модель сотрудника мастерской из StaffService
type StaffMember struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"` // technician, staff, admin
	Active   bool   `json:"active"`
}

// ErrorResponse модель ошибки от StaffService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
