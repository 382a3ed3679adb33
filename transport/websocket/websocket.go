/*
The websocket package carries the controller's event-driven subscription
stream. It is the lowest layer of the transport stack: raw payload bytes go up
to the parser, nothing comes back down: the subscription stream is one-way.

A Websocket is single-use: after a failed handshake or a dead receive pump the
object is discarded and the negotiator constructs a fresh one for the next
candidate endpoint.
*/
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gorilla "github.com/gorilla/websocket"
	"gopkg.in/tomb.v2"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport"
)

const (
	HttpsOnlyWebsocketScheme = "wss"
	HttpWebsocketScheme      = "ws"

	// Application sub-protocol the controller expects on the upgrade request
	SubProtocol = "robapi2_subscription"

	handshakeTimeout = 5 * time.Second
)

var WebsocketUrlScheme = HttpWebsocketScheme

type Websocket struct {
	tmb    tomb.Tomb
	logger *logger.Logger
	client *gorilla.Conn

	// Received messages
	inbound chan *[]byte
}

func New(logger *logger.Logger) transport.Transporter {
	return &Websocket{
		logger:  logger,
		inbound: make(chan *[]byte, 200),
	}
}

func (w *Websocket) Close(reason error) {
	if w.tmb.Alive() {
		w.logger.Infof("Websocket connection closing because: %s", reason)

		// close the websocket connection
		w.client.Close()

		w.tmb.Kill(reason)
		w.tmb.Wait()
	} else {
		w.logger.Infof("Close was called while in a dying state")
	}
}

func (w *Websocket) Done() <-chan struct{} {
	return w.tmb.Dead()
}

func (w *Websocket) Err() error {
	return w.tmb.Err()
}

func (w *Websocket) Inbound() <-chan *[]byte {
	return w.inbound
}

func (w *Websocket) Dial(connUrl *url.URL, headers http.Header, ctx context.Context) (err error) {
	// Make sure url scheme is correct
	connUrl.Scheme = WebsocketUrlScheme

	// Cookies are not attached automatically on upgrade requests, so the
	// caller passes the session cookies in through headers. The sub-protocol
	// is ours to set.
	dialer := gorilla.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{SubProtocol},
	}

	// Try to connect websocket once
	if w.client, _, err = dialer.DialContext(ctx, connUrl.String(), headers); err != nil {
		return fmt.Errorf("error dialing websocket: %w", err)
	}

	// Reinitialize our variables in case this is post death
	w.tmb = tomb.Tomb{}

	w.tmb.Go(w.receive)

	return nil
}

func (w *Websocket) receive() error {
	defer w.logger.Infof("Websocket connection closed")
	w.logger.Infof("Websocket connection started")

	for {
		// Read incoming message
		if _, rawMessage, err := w.client.ReadMessage(); !w.tmb.Alive() {
			return nil
		} else if err != nil {
			// Check if it's a clean exit
			if !gorilla.IsCloseError(err, gorilla.CloseNormalClosure) {
				w.logger.Error(err)
			} else {
				w.logger.Info("Websocket connection closed normally")
			}
			return err
		} else {
			// The consumer stops draining once it is dying; a full buffer must
			// not wedge the pump or Close would never return
			select {
			case w.inbound <- &rawMessage:
			case <-w.tmb.Dying():
				return nil
			}
		}
	}
}
