package notification

import (
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	busName       = "org.freedesktop.Notifications"
	objectPath    = dbus.ObjectPath("/org/freedesktop/Notifications")
	methodNotify  = busName + ".Notify"
	methodServer  = busName + ".GetServerInformation"
	methodClose   = busName + ".CloseNotification"
	urgencyHint   = "urgency"
	defaultExpiry = int32(-1)
)

// ServerInfo identifies the running notification daemon
type ServerInfo struct {
	Name        string `json:"name"`
	Vendor      string `json:"vendor"`
	Version     string `json:"version"`
	SpecVersion string `json:"spec_version"`
}

// Message is a notification to display
type Message struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Icon    string `json:"icon"`
	Urgency string `json:"urgency"` // low, normal or critical
	Timeout int32  `json:"timeout_ms"`
}

// Notifier talks to a notification daemon
type Notifier interface {
	ServerInfo() (ServerInfo, error)
	Notify(appName string, msg Message) (uint32, error)
	Dismiss(id uint32) error
	Close() error
}

// dbusNotifier implements Notifier over the session bus. The connection is
// opened on first use.
type dbusNotifier struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// NewDBusNotifier returns a Notifier for org.freedesktop.Notifications
func NewDBusNotifier() Notifier {
	return &dbusNotifier{}
}

func (n *dbusNotifier) object() (dbus.BusObject, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to session bus")
		}
		n.conn = conn
	}
	return n.conn.Object(busName, objectPath), nil
}

func (n *dbusNotifier) ServerInfo() (ServerInfo, error) {
	var info ServerInfo
	obj, err := n.object()
	if err != nil {
		return info, err
	}
	err = obj.Call(methodServer, 0).Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion)
	if err != nil {
		return info, errors.Wrap(err, "notification server unavailable")
	}
	return info, nil
}

func (n *dbusNotifier) Notify(appName string, msg Message) (uint32, error) {
	obj, err := n.object()
	if err != nil {
		return 0, err
	}

	hints := map[string]dbus.Variant{}
	if level, ok := urgencyLevel(msg.Urgency); ok {
		hints[urgencyHint] = dbus.MakeVariant(level)
	}
	timeout := msg.Timeout
	if timeout == 0 {
		timeout = defaultExpiry
	}

	var id uint32
	err = obj.Call(methodNotify, 0,
		appName, uint32(0), msg.Icon, msg.Title, msg.Body,
		[]string{}, hints, timeout,
	).Store(&id)
	if err != nil {
		return 0, errors.Wrap(err, "failed to send notification")
	}
	return id, nil
}

func (n *dbusNotifier) Dismiss(id uint32) error {
	obj, err := n.object()
	if err != nil {
		return err
	}
	return errors.Wrap(obj.Call(methodClose, 0, id).Err, "failed to close notification")
}

func (n *dbusNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}

func urgencyLevel(name string) (byte, bool) {
	switch name {
	case "low":
		return 0, true
	case "normal":
		return 1, true
	case "critical":
		return 2, true
	default:
		return 0, false
	}
}
