package api

// NoticeLevel is the severity of a notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	}
	return "info"
}

// Notice is a transient user-visible message
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

func (n Notice) String() string {
	if n.Err != nil {
		return n.Message + ": " + n.Err.Error()
	}
	return n.Message
}

func (e *Editor) notify(level NoticeLevel, message string, err error) {
	n := Notice{Level: level, Message: message, Err: err}
	e.mu.Lock()
	e.notices = append(e.notices, n)
	e.mu.Unlock()

	if level == NoticeInfo {
		e.logger.Debug(message)
	} else {
		e.logger.Warn(message, "err", err)
	}
	if e.options.Notify != nil {
		e.options.Notify(n)
	}
}

// Notices returns and clears the notices raised since the last call
func (e *Editor) Notices() []Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.notices
	e.notices = nil
	return out
}
