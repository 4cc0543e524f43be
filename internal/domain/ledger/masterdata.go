package ledger

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"tribu-ledger/internal/platform/logger"
)

// Valores de configuración que cambian la forma del formulario.
const (
	EventTypeCamino = "El Camino de Costa Rica"
	LocationOther   = "Otro"
)

// MasterData son los datos maestros del módulo: enumeraciones para el
// formulario de configuración y las cuentas de cobro por defecto.
type MasterData struct {
	MaxCaps         []string        `yaml:"maxCaps"`
	IncludesOptions []string        `yaml:"includesOptions"`
	EventTypes      []string        `yaml:"eventTypes"`
	Stages          []string        `yaml:"stages"`
	Locations       []string        `yaml:"locations"`
	DefaultAccounts []PaymentMethod `yaml:"defaultAccounts"`
}

// DefaultMasterData devuelve los datos maestros incluidos en el binario.
func DefaultMasterData() MasterData {
	return MasterData{
		MaxCaps: []string{"14", "17", "28", "31", "34", "+35"},
		IncludesOptions: []string{
			"Transporte", "Alimentación", "Guías", "Tiquetes Aéreos", "Impuestos",
			"Duchas", "Desayuno", "Almuerzo", "Cena", "Refrigerio", "Café",
			"Permisos de Paso", "Entrada", "Lancha", "Todo Incluido", "Pasaporte",
		},
		EventTypes: []string{
			EventTypeCamino, "Parques Nacionales", "Convivio", "Fiesta de Fin de Año",
			"Caminata Recreativa", "Caminata Básica", "Caminata Intermedia",
			"Caminata Difícil", "Caminata Avanzada Técnica", "Otra",
		},
		Stages: []string{
			"Etapa 1a", "Etapa 1b", "Etapa 1&b", "Etapa 2", "Etapa 3", "Etapa 4", "Etapa 3&4",
			"Etapa 5", "Etapa 6", "Etapa 7", "Etapa 8", "Etapa 9", "Etapa 10", "Etapa 11",
			"Etapa 12", "Etapa 13", "Etapa 14", "Etapa 15", "Etapa 14&15", "Etapa 16",
		},
		Locations: []string{
			"Parque de Tres Ríos - Escuela", "Parque de Tres Ríos - Letras",
			"Parque de Tres Ríos - Cruz Roja", LocationOther,
		},
		DefaultAccounts: []PaymentMethod{
			{Type: "SINPE Móvil", Number: "86227500", Name: "Kenneth Ruiz Matamoros"},
			{Type: "SINPE Móvil", Number: "86529837", Name: "Jenny Ceciliano Cordoba"},
			{Type: "SINPE Móvil", Number: "87984232", Name: "Jenny Ceciliano Cordoba"},
		},
	}
}

// MasterSource sirve los datos maestros. Sin path usa los defaults; con
// path carga un YAML de override y puede recargarlo en caliente.
type MasterSource struct {
	path string
	log  logger.Logger

	mu      sync.RWMutex
	current MasterData
	watcher *fsnotify.Watcher
}

// NewMasterSource carga los datos maestros. path vacío => defaults.
func NewMasterSource(path string, log logger.Logger) (*MasterSource, error) {
	s := &MasterSource{path: path, log: log, current: DefaultMasterData()}
	if path == "" {
		return s, nil
	}
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current = data
	return s, nil
}

// Current devuelve los datos maestros vigentes.
func (s *MasterSource) Current() MasterData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Watch recarga el archivo de datos maestros cuando cambia. Un archivo
// inválido deja la última versión buena. Llamar stop() para limpiar.
func (s *MasterSource) Watch() (stop func(), err error) {
	if s.path == "" {
		return func() {}, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("masterdata watcher: %w", err)
	}
	if err := w.Add(s.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("masterdata watcher add %s: %w", s.path, err)
	}
	s.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					data, err := s.load()
					if err != nil {
						s.log.Warn("masterdata reload failed", map[string]any{"err": err.Error()})
						continue
					}
					s.mu.Lock()
					s.current = data
					s.mu.Unlock()
					s.log.Info("masterdata reloaded", map[string]any{"path": s.path})
				}
			case <-w.Errors:
				// se ignoran errores del watcher
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

func (s *MasterSource) load() (MasterData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return MasterData{}, fmt.Errorf("read masterdata %s: %w", s.path, err)
	}

	// El override parte de los defaults: un YAML parcial solo
	// reemplaza las listas que declara.
	data := DefaultMasterData()
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return MasterData{}, fmt.Errorf("parse masterdata %s: %w", s.path, err)
	}
	return data, nil
}
