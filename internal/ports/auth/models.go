package auth

// Claims es la identidad del miembro extraída del token de sesión.
type Claims struct {
	UserID string
	Email  string
}
