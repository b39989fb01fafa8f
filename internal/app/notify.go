package app

// Notifier displays transient status or error text to the user. Callers fully
// control the message; dismissal is the renderer's concern.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) {
	f(message)
}

// Navigator hands the user off to an external URL (a full-page redirect in a
// browser, opening or printing the URL elsewhere)
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error {
	return f(url)
}
