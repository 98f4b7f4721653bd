package notify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bubtconnect/backend/src/workflow"
)

// fakeRelay answers just enough SMTP to accept one message and hands the
// DATA section to received.
func fakeRelay(t *testing.T) (port int, received <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		fmt.Fprint(conn, "220 relay ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				fmt.Fprint(conn, "250-relay\r\n250 8BITMIME\r\n")
			case cmd == "DATA":
				fmt.Fprint(conn, "354 go ahead\r\n")
				var data strings.Builder
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				out <- data.String()
				fmt.Fprint(conn, "250 queued\r\n")
			case cmd == "QUIT":
				fmt.Fprint(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprint(conn, "250 ok\r\n")
			}
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port, out
}

func TestSMTPMailerDelivers(t *testing.T) {
	port, received := fakeRelay(t)
	m, err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, Sender: "noreply@bubt.edu", Timeout: 5 * time.Second})
	require.NoError(t, err)

	err = m.Send(context.Background(), Mail{To: "bob@bubt.edu", Subject: "Nouvelle connexión", Body: "<p>hi</p>"})
	require.NoError(t, err)

	select {
	case data := <-received:
		require.Contains(t, data, "bob@bubt.edu")
		require.Contains(t, data, "Subject: =?UTF-8?q?", "non-ASCII subject is encoded")
		require.Contains(t, data, "text/html")
	case <-time.After(5 * time.Second):
		t.Fatal("relay received nothing")
	}
}

func TestSMTPMailerGivesUpOnStalledRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		_ = ln.Close()
	})
	go func() {
		// Accept and never greet.
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-done
		_ = conn.Close()
	}()

	m, err := NewSMTPMailer(SMTPConfig{
		Host:    "127.0.0.1",
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Sender:  "noreply@bubt.edu",
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	err = m.Send(context.Background(), Mail{To: "bob@bubt.edu", Subject: "Hi", Body: "x"})
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPMailerRejectsHeaderInjection(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 2525, Sender: "noreply@bubt.edu"})
	require.NoError(t, err)

	err = m.Send(context.Background(), Mail{To: "bob@bubt.edu\r\nBcc: eve@evil.example", Subject: "Hi"})
	require.Error(t, err)
	require.True(t, workflow.IsPermanent(err), "a malformed recipient is not retried")

	err = m.Send(context.Background(), Mail{Subject: "Hi"})
	require.True(t, workflow.IsPermanent(err))
}

func TestNewMessageEncodesSubject(t *testing.T) {
	msg, err := newMessage("noreply@bubt.edu", Mail{To: "bob@bubt.edu", Subject: "Hi\r\nBcc: eve@evil.example", Body: "<p>x</p>"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	require.NotContains(t, buf.String(), "\r\nBcc: eve@evil.example")
	require.Contains(t, buf.String(), "<p>x</p>")
}

func TestNewSMTPMailerRejectsBadSender(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: 2525, Sender: "not an address"})
	require.Error(t, err)
}
