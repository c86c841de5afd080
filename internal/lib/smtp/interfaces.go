// Package smtp отвечает за соединение с почтовым сервером.
package smtp

import "io"

// Client подмножество методов *smtp.Client, нужное для отправки письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает аутентифицированное соединение с почтовым сервером.
type Dialer interface {
	Connect() (Client, error)
	Sender() string
}
