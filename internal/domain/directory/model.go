package directory

import "strings"

// Estado de un miembro dentro del grupo.
const (
	EstadoActivo       = "Activo"
	EstadoInactivo     = "Inactivo"
	EstadoIncapacitado = "Incapacitado"
	EstadoEliminar     = "Eliminar"
)

// User es un miembro del directorio (CRM). Es una entidad de solo
// lectura desde el punto de vista del módulo de pagos: ahí solo sirve
// para pre-llenar caminantes. Los tags JSON conservan la forma del
// snapshot existente.
type User struct {
	ID        int64  `json:"id"`
	Nombre    string `json:"nombre"`
	Apellido1 string `json:"apellido1"`
	Apellido2 string `json:"apellido2"`
	Cedula    string `json:"cedula"`
	Movil     string `json:"movil"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Estado    string `json:"estado"`
}

// FullName arma "Nombre Apellido1 Apellido2" sin espacios sobrantes.
func (u User) FullName() string {
	return strings.TrimSpace(strings.Join(nonEmpty(u.Nombre, u.Apellido1, u.Apellido2), " "))
}

// IdentityKey es la llave con la que se detectan duplicados: la cédula
// o, a falta de ella, el nombre completo.
func (u User) IdentityKey() string {
	if u.Cedula != "" {
		return u.Cedula
	}
	return u.FullName()
}

// Phone prefiere el móvil sobre el teléfono fijo.
func (u User) Phone() string {
	if u.Movil != "" {
		return u.Movil
	}
	return u.Telefono
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}
