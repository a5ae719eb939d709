package auth

// UnauthorizedError is returned when the credentials or tokens given don't identify a user.
type UnauthorizedError struct{}

func NewUnauthorizedError() *UnauthorizedError {
	return &UnauthorizedError{}
}

func (v UnauthorizedError) Error() string {
	return "not authorized"
}
