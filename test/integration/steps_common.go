package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/ws-lock/pkg/fixtures"
)

const seedFixture = `
groups:
  - name: bar
    visible: [FOO]
  - name: baz
    visible: [FOO, BAZ]
users:
  - id: 1
    username: bar
    groups: [bar]
    permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
  - id: 2
    username: baz
    groups: [baz]
    permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
  - id: 3
    username: viewer
    groups: [bar]
    permissions: [view_item]
  - id: 4
    username: retired
    active: false
    groups: [bar]
    permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
items:
  - id: 3
    type: FOO
  - id: 4
    type: FOO
  - id: 7
    type: BAZ
`

// quietPeriod is how long a client must stay silent to count as receiving nothing
const quietPeriod = 300 * time.Millisecond

// wsClient is one open lock socket. A single goroutine owns Read, since
// canceling a read context closes the connection.
type wsClient struct {
	conn     *websocket.Conn
	messages chan []byte
	closed   chan struct{}
	err      error
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn:     conn,
		messages: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
	go func() {
		defer close(c.closed)
		for {
			_, data, err := conn.Read(context.Background())
			if err != nil {
				c.err = err
				return
			}
			c.messages <- data
		}
	}()
	return c
}

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	users        map[string]int64
	clients      map[string]*wsClient
	dialStatus   int
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:      tc,
		users:   make(map[string]int64),
		clients: make(map[string]*wsClient),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(s.resetState)
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		for _, c := range s.clients {
			_ = c.conn.CloseNow()
		}
		return ctx, err
	})

	// Background steps
	sc.Step(`^a lock server is running$`, s.aLockServerIsRunning)

	// Socket steps
	sc.Step(`^"([^"]*)" connects$`, s.userConnects)
	sc.Step(`^"([^"]*)" requests items \[([^\]]*)\]$`, s.userRequestsItems)
	sc.Step(`^"([^"]*)" sends:$`, s.userSends)
	sc.Step(`^"([^"]*)" and "([^"]*)" request items \[([^\]]*)\] at the same time$`, s.usersRequestItemsConcurrently)
	sc.Step(`^"([^"]*)" should see exactly one lock on item (\d+)$`, s.userShouldSeeExactlyOneLockOnItem)
	sc.Step(`^"([^"]*)" disconnects$`, s.userDisconnects)
	sc.Step(`^"([^"]*)" should receive:$`, s.userShouldReceive)
	sc.Step(`^"([^"]*)" should receive nothing$`, s.userShouldReceiveNothing)
	sc.Step(`^"([^"]*)" tries to connect$`, s.userTriesToConnect)
	sc.Step(`^the connection should be refused with status (\d+)$`, s.theConnectionShouldBeRefusedWithStatus)

	// Persistence steps
	sc.Step(`^"([^"]*)" should hold no active locks$`, s.userShouldHoldNoActiveLocks)
	sc.Step(`^"([^"]*)" should hold the lock on item (\d+)$`, s.userShouldHoldTheLockOnItem)
	sc.Step(`^exactly one active lock should exist on item (\d+)$`, s.exactlyOneActiveLockShouldExistOnItem)

	// Snapshot steps
	sc.Step(`^"([^"]*)" lists locks$`, s.userListsLocks)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the lock list should contain items \[([^\]]*)\]$`, s.theLockListShouldContainItems)

	s.registerJWTSteps(sc)
}

func (s *StepsContext) resetState(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	if err := s.tc.Reset(ctx); err != nil {
		return ctx, fmt.Errorf("failed to clear locks: %w", err)
	}
	f, err := fixtures.Parse([]byte(seedFixture))
	if err != nil {
		return ctx, err
	}
	if err := f.Apply(ctx, s.tc.DB); err != nil {
		return ctx, fmt.Errorf("failed to apply fixtures: %w", err)
	}
	for _, u := range f.Users {
		s.users[u.Username] = u.ID
	}
	return ctx, nil
}

// Background steps

func (s *StepsContext) aLockServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) userID(name string) (int64, error) {
	id, ok := s.users[name]
	if !ok {
		return 0, fmt.Errorf("unknown user %q", name)
	}
	return id, nil
}

func (s *StepsContext) tokenFor(name string) (string, error) {
	id, err := s.userID(name)
	if err != nil {
		return "", err
	}
	return s.tc.Tokens.Issue(id)
}

func (s *StepsContext) client(name string) (*wsClient, error) {
	c, ok := s.clients[name]
	if !ok {
		return nil, fmt.Errorf("%q is not connected", name)
	}
	return c, nil
}

// dial opens a socket with the given token and records the handshake status
func (s *StepsContext) dial(token string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.Dial(ctx, s.tc.Server.WebSocketURL(), &websocket.DialOptions{HTTPHeader: header})
	s.dialStatus = 0
	if resp != nil {
		s.dialStatus = resp.StatusCode
	}
	return conn, err
}

// Socket steps

func (s *StepsContext) userConnects(name string) error {
	token, err := s.tokenFor(name)
	if err != nil {
		return err
	}
	conn, err := s.dial(token)
	if err != nil {
		return fmt.Errorf("%s failed to connect (status %d): %w", name, s.dialStatus, err)
	}
	s.clients[name] = newWSClient(conn)

	// Subscriptions are registered right after the handshake
	time.Sleep(100 * time.Millisecond)
	return nil
}

func (s *StepsContext) userTriesToConnect(name string) error {
	token, err := s.tokenFor(name)
	if err != nil {
		return err
	}
	if conn, err := s.dial(token); err == nil {
		s.clients[name] = newWSClient(conn)
	}
	return nil
}

func (s *StepsContext) theConnectionShouldBeRefusedWithStatus(status int) error {
	if s.dialStatus != status {
		return fmt.Errorf("expected handshake status %d, got %d", status, s.dialStatus)
	}
	return nil
}

func (s *StepsContext) userRequestsItems(name, list string) error {
	items, err := parseIDList(list)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string][]int64{"items": items})
	if err != nil {
		return err
	}
	return s.send(name, payload)
}

func (s *StepsContext) userSends(name string, body *godog.DocString) error {
	return s.send(name, []byte(body.Content))
}

func (s *StepsContext) send(name string, payload []byte) error {
	c, err := s.client(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// usersRequestItemsConcurrently releases both writes from one barrier so the
// two reconciliations contend in the database.
func (s *StepsContext) usersRequestItemsConcurrently(first, second, list string) error {
	items, err := parseIDList(list)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string][]int64{"items": items})
	if err != nil {
		return err
	}

	start := make(chan struct{})
	errs := make(chan error, 2)
	for _, name := range []string{first, second} {
		c, err := s.client(name)
		if err != nil {
			return err
		}
		go func() {
			<-start
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			errs <- c.conn.Write(ctx, websocket.MessageText, payload)
		}()
	}
	close(start)
	return errors.Join(<-errs, <-errs)
}

func (s *StepsContext) userShouldSeeExactlyOneLockOnItem(name string, item int64) error {
	c, err := s.client(name)
	if err != nil {
		return err
	}

	var holders []int64
	for {
		select {
		case data := <-c.messages:
			var changes []struct {
				Item   int64 `json:"item"`
				User   int64 `json:"user"`
				Locked bool  `json:"locked"`
			}
			if err := json.Unmarshal(data, &changes); err != nil {
				return fmt.Errorf("%s received invalid JSON %q: %w", name, data, err)
			}
			for _, ch := range changes {
				if ch.Item == item && ch.Locked {
					holders = append(holders, ch.User)
				}
			}
		case <-time.After(quietPeriod):
			if len(holders) != 1 {
				return fmt.Errorf("%s saw %d locks on item %d (users %v), expected 1", name, len(holders), item, holders)
			}
			return nil
		}
	}
}

func (s *StepsContext) userDisconnects(name string) error {
	c, err := s.client(name)
	if err != nil {
		return err
	}
	delete(s.clients, name)
	_ = c.conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the release to be committed and broadcast
	time.Sleep(200 * time.Millisecond)
	return nil
}

func (s *StepsContext) userShouldReceive(name string, body *godog.DocString) error {
	c, err := s.client(name)
	if err != nil {
		return err
	}

	var want any
	if err := json.Unmarshal([]byte(body.Content), &want); err != nil {
		return fmt.Errorf("invalid expected JSON: %w", err)
	}

	select {
	case data := <-c.messages:
		var got any
		if err := json.Unmarshal(data, &got); err != nil {
			return fmt.Errorf("%s received invalid JSON %q: %w", name, data, err)
		}
		if !reflect.DeepEqual(want, got) {
			return fmt.Errorf("%s expected %s, got %s", name, strings.TrimSpace(body.Content), data)
		}
		return nil
	case <-c.closed:
		return fmt.Errorf("%s connection closed: %v", name, c.err)
	case <-time.After(2 * time.Second):
		return fmt.Errorf("%s received nothing, expected %s", name, strings.TrimSpace(body.Content))
	}
}

func (s *StepsContext) userShouldReceiveNothing(name string) error {
	c, err := s.client(name)
	if err != nil {
		return err
	}
	select {
	case data := <-c.messages:
		return fmt.Errorf("%s expected nothing, got %s", name, data)
	case <-time.After(quietPeriod):
		return nil
	}
}

// Persistence steps

func (s *StepsContext) userShouldHoldNoActiveLocks(name string) error {
	id, err := s.userID(name)
	if err != nil {
		return err
	}
	var count int
	err = s.tc.RawDB.QueryRow(`SELECT count(*) FROM item_locks WHERE user_id = $1 AND locked`, id).Scan(&count)
	if err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("%s still holds %d active locks", name, count)
	}
	return nil
}

func (s *StepsContext) userShouldHoldTheLockOnItem(name string, item int64) error {
	id, err := s.userID(name)
	if err != nil {
		return err
	}
	var holder int64
	err = s.tc.RawDB.QueryRow(`SELECT user_id FROM item_locks WHERE item_id = $1 AND locked`, item).Scan(&holder)
	if err != nil {
		return fmt.Errorf("no active lock on item %d: %w", item, err)
	}
	if holder != id {
		return fmt.Errorf("item %d is locked by user %d, not %s", item, holder, name)
	}
	return nil
}

func (s *StepsContext) exactlyOneActiveLockShouldExistOnItem(item int64) error {
	var count int
	err := s.tc.RawDB.QueryRow(`SELECT count(*) FROM item_locks WHERE item_id = $1 AND locked`, item).Scan(&count)
	if err != nil {
		return err
	}
	if count != 1 {
		return fmt.Errorf("expected one active lock on item %d, found %d", item, count)
	}
	return nil
}

// Snapshot steps

func (s *StepsContext) userListsLocks(name string) error {
	token, err := s.tokenFor(name)
	if err != nil {
		return err
	}
	req, err := newAuthorizedRequest(s.tc.Server.ServerURL+"/locks", token)
	if err != nil {
		return err
	}
	return s.doRequest(req)
}

func newAuthorizedRequest(url, token string) (*http.Request, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (s *StepsContext) doRequest(req *http.Request) error {
	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theLockListShouldContainItems(list string) error {
	want, err := parseIDList(list)
	if err != nil {
		return err
	}
	var locks []struct {
		Item int64 `json:"item"`
	}
	if err := json.Unmarshal(s.responseBody, &locks); err != nil {
		return fmt.Errorf("failed to parse lock list: %w", err)
	}
	got := make([]int64, 0, len(locks))
	for _, l := range locks {
		got = append(got, l.Item)
	}
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("expected items %v, got %v", want, got)
	}
	return nil
}

// parseIDList parses "3, 4" into ids. An empty string is an empty list.
func parseIDList(list string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
