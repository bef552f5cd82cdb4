package logger

func detached() bool {
	return false
}
