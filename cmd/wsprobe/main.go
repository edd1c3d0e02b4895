// Command wsprobe subscribes to a content item's live engagement stream and
// prints every event it receives. Useful for eyeballing vote and reply
// broadcasts during development.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8491", "API server address")
	contentID := flag.Uint("content", 1, "Content ID to subscribe to")
	token := flag.String("token", "", "Optional session token")
	flag.Parse()

	u := url.URL{
		Scheme: "ws",
		Host:   *addr,
		Path:   fmt.Sprintf("/ws/content/%d", *contentID),
	}
	if *token != "" {
		u.RawQuery = "token=" + url.QueryEscape(*token)
	}
	log.Printf("connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("event: %s", message)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		log.Println("interrupt, closing connection")
		err := conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Printf("write close: %v", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
