package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// Config holds the SMTP settings and the administrative contact address
// that role-change requests are sent to.
type Config struct {
	Host        string
	Port        int
	User        string
	Pass        string
	FromName    string
	FromAddress string
	AdminEmail  string
}

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// Mailer sends email over SMTP. sendFn is swappable in tests.
type Mailer struct {
	mu     sync.RWMutex
	cfg    *Config
	sendFn func(msg Message) error
}

func New(cfg *Config) *Mailer {
	m := &Mailer{cfg: cfg}
	m.sendFn = m.smtpSend
	return m
}

// Reconfigure swaps in new settings.
func (m *Mailer) Reconfigure(cfg *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

func (m *Mailer) config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Send delivers msg. Callers in this codebase treat failure as non-fatal:
// they log it and move on, the triggering state change stays committed.
func (m *Mailer) Send(msg Message) error {
	return m.sendFn(msg)
}

func (m *Mailer) smtpSend(msg Message) error {
	cfg := m.config()
	if cfg == nil || cfg.Host == "" {
		return fmt.Errorf("mailer: smtp not configured")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	return smtp.SendMail(addr, auth, cfg.FromAddress, msg.To, []byte(m.formatMessage(msg)))
}

func (m *Mailer) formatMessage(msg Message) string {
	cfg := m.config()

	contentType := "text/plain; charset=UTF-8"
	if msg.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", cfg.FromName, cfg.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}

// Ping checks that the configured SMTP host accepts connections.
func (m *Mailer) Ping() error {
	cfg := m.config()
	if cfg == nil || cfg.Host == "" {
		return fmt.Errorf("mailer: smtp not configured")
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), 5*time.Second)
	if err != nil {
		return fmt.Errorf("mailer: smtp unreachable: %w", err)
	}
	return conn.Close()
}
