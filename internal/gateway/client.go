package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Target — адрес и реквизиты management REST API одного устройства.
type Target struct {
	IP       string
	Port     string
	Username string
	Password string
}

// BaseURL: http://{ip}:{port}
func (t Target) BaseURL() string {
	return "http://" + net.JoinHostPort(t.IP, t.Port)
}

func (t Target) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(t.Username+":"+t.Password))
}

// UnreachableError — устройство не ответило или вернуло не-2xx.
// Ретраев нет: политику повторов выбирает вызывающая сторона.
type UnreachableError struct {
	Endpoint string
	Err      error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("gateway unreachable at %s: %v", e.Endpoint, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Interface — запись из /rest/interface. WAN-линки помечаются комментарием
// ("WAN1".."WAN4"); отсутствие пометки means "not configured", это не ошибка.
type Interface struct {
	Name    string   `json:"name"`
	Comment string   `json:"comment"`
	Type    string   `json:"type"`
	Running BoolWire `json:"running"`
}

// IPAddress — запись из /rest/ip/address.
type IPAddress struct {
	Address   string `json:"address"`
	Network   string `json:"network"`
	Interface string `json:"interface"`
}

// NetwatchHost — запись из /rest/tool/netwatch.
type NetwatchHost struct {
	Host    string `json:"host"`
	Comment string `json:"comment"`
	Status  string `json:"status"`
	Since   string `json:"since"`
}

// BoolWire: RouterOS REST отдаёт булевы значения строками "true"/"false".
type BoolWire bool

func (b *BoolWire) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `true`, `"true"`, `"yes"`:
		*b = true
	default:
		*b = false
	}
	return nil
}

// Client ходит в management REST API устройств. Один экземпляр на процесс,
// безопасен для конкурентного использования.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// FetchEndpoint делает один авторизованный GET {base}/rest/{endpoint} и
// возвращает сырой JSON. endpoint может содержать query ("ip/address?interface=ether1").
func (c *Client) FetchEndpoint(ctx context.Context, t Target, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.BaseURL()+"/rest/"+endpoint, nil)
	if err != nil {
		return nil, &UnreachableError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", t.authHeader())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnreachableError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnreachableError{Endpoint: endpoint, Err: fmt.Errorf("status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{Endpoint: endpoint, Err: err}
	}
	return json.RawMessage(body), nil
}

// FetchInterfaces — типизированный список интерфейсов устройства.
func (c *Client) FetchInterfaces(ctx context.Context, t Target) ([]Interface, error) {
	raw, err := c.FetchEndpoint(ctx, t, "interface")
	if err != nil {
		return nil, err
	}
	var out []Interface
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &UnreachableError{Endpoint: "interface", Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

// FetchAddresses — адреса, назначенные интерфейсу. Пустой список — норма
// (интерфейс без адреса), не ошибка.
func (c *Client) FetchAddresses(ctx context.Context, t Target, iface string) ([]IPAddress, error) {
	raw, err := c.FetchEndpoint(ctx, t, "ip/address?interface="+url.QueryEscape(iface))
	if err != nil {
		return nil, err
	}
	var out []IPAddress
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &UnreachableError{Endpoint: "ip/address", Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

// FetchNetwatch — записи netwatch (проверка доступности аплинков).
func (c *Client) FetchNetwatch(ctx context.Context, t Target) ([]NetwatchHost, error) {
	raw, err := c.FetchEndpoint(ctx, t, "tool/netwatch")
	if err != nil {
		return nil, err
	}
	var out []NetwatchHost
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &UnreachableError{Endpoint: "tool/netwatch", Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

// FetchIdentity — имя устройства из system/identity ("" если поле пусто).
func (c *Client) FetchIdentity(ctx context.Context, t Target) (string, error) {
	raw, err := c.FetchEndpoint(ctx, t, "system/identity")
	if err != nil {
		return "", err
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &UnreachableError{Endpoint: "system/identity", Err: fmt.Errorf("decode: %w", err)}
	}
	return out.Name, nil
}

// FindInterfaceByComment возвращает первый интерфейс с данным комментарием,
// либо nil: непомеченный WAN — "не настроен", не ошибка.
func (c *Client) FindInterfaceByComment(ctx context.Context, t Target, comment string) (*Interface, error) {
	ifaces, err := c.FetchInterfaces(ctx, t)
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		if ifaces[i].Comment == comment {
			return &ifaces[i], nil
		}
	}
	return nil, nil
}
