package lifecycle

import "fmt"

// State — состояние жизненного цикла записи. Записи не удаляются физически,
// а переводятся в retired.
type State string

const (
	Active  State = "active"
	Retired State = "retired"
)

func (s State) IsActive() bool { return s == Active }

func (s State) Valid() bool {
	switch s {
	case Active, Retired:
		return true
	}
	return false
}

// Parse разбирает значение из БД; пустая строка считается active
// (строки, созданные до появления колонки).
func Parse(v string) (State, error) {
	if v == "" {
		return Active, nil
	}
	s := State(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown lifecycle state %q", v)
	}
	return s, nil
}
