package clickhouse

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds connection and session settings.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// UseHTTP selects the HTTP interface (port 8123) over the native protocol.
	UseHTTP bool

	DialTimeout time.Duration
	ReadTimeout time.Duration
	// MaxExecTime is sent as max_execution_time, in whole seconds.
	MaxExecTime time.Duration

	// AsyncInsert buffers inserts server-side; WaitForAsync makes the insert
	// return only after the buffer is flushed.
	AsyncInsert  bool
	WaitForAsync bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func defaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Port:            9000,
		Database:        "default",
		User:            "default",
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// WithAddress sets host and port. A zero port keeps the default.
func WithAddress(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

// WithDatabase sets the database name.
func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) { c.Database = database }
}

// WithCredentials sets username and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithHTTP switches to the HTTP interface.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

// WithTimeouts sets dial and read timeouts and the per-query execution cap.
func WithTimeouts(dial, read, maxExec time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout = dial
		c.ReadTimeout = read
		c.MaxExecTime = maxExec
	}
}

// WithAsyncInsert configures async_insert and wait_for_async_insert.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}
