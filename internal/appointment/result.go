package appointment

// Result is the outcome of a lookup: InsufficientInput, NotFound, Found or
// Error. Callers switch on the concrete type.
type Result interface {
	isResult()
}

// InsufficientInput means neither a token nor a full identity was supplied.
type InsufficientInput struct{}

// NotFound means the query ran and matched nothing.
type NotFound struct{}

// Found carries the matched appointment.
type Found struct {
	Appointment Appointment
}

// Error wraps any failure raised while acquiring the connection, running
// the query or reading the row.
type Error struct {
	Err error
}

func (InsufficientInput) isResult() {}
func (NotFound) isResult()          {}
func (Found) isResult()             {}
func (Error) isResult()             {}

func (e Error) Message() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}
