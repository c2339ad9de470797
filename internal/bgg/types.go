package bgg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotProcessed means BGG kept answering "request accepted" past the
	// retry budget. The collection is still being built server side.
	ErrNotProcessed = errors.New("bgg: request not processed in time, try again later")
	// ErrUnavailable means transport or server errors persisted past retries.
	ErrUnavailable = errors.New("bgg: API closed the connection prematurely")
)

// APIError is an <errors> document returned with a 200.
type APIError struct {
	URL      string
	Messages []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bgg returned errors while requesting %s - %s", e.URL, strings.Join(e.Messages, "; "))
}

// Play is one logged play from /plays.
type Play struct {
	ID       int      `xml:"id,attr"`
	Date     string   `xml:"date,attr"`
	Quantity int      `xml:"quantity,attr"`
	Location string   `xml:"location,attr"`
	Item     PlayItem `xml:"item"`
	Comments string   `xml:"comments"`
	Players  []Player `xml:"players>player"`
}

type PlayItem struct {
	Name     string `xml:"name,attr"`
	ObjectID int    `xml:"objectid,attr"`
}

// Player fields default to "Unknown" when BGG leaves them blank.
type Player struct {
	Name  string `xml:"name,attr"`
	Color string `xml:"color,attr"`
	Win   string `xml:"win,attr"`
}

// Won reports the win attribute as a bool.
func (p Player) Won() bool { return strings.TrimSpace(p.Win) == "1" }

type playsDoc struct {
	XMLName xml.Name `xml:"plays"`
	Total   int      `xml:"total,attr"`
	Page    int      `xml:"page,attr"`
	Plays   []Play   `xml:"play"`
}

// CollectionItem is one entry of /collection.
type CollectionItem struct {
	ID        int    `xml:"objectid,attr"`
	Name      string `xml:"name"`
	Thumbnail string `xml:"thumbnail"`
	NumPlays  int    `xml:"numplays"`
	Status    Status `xml:"status"`
}

type Status struct {
	Own        string `xml:"own,attr"`
	PrevOwned  string `xml:"prevowned,attr"`
	ForTrade   string `xml:"fortrade,attr"`
	Want       string `xml:"want,attr"`
	WantToPlay string `xml:"wanttoplay,attr"`
	WantToBuy  string `xml:"wanttobuy,attr"`
	Wishlist   string `xml:"wishlist,attr"`
	Preordered string `xml:"preordered,attr"`
}

// Tags lists the status flags set to "1", in BGG attribute order.
func (s Status) Tags() []string {
	var out []string
	for _, kv := range []struct{ k, v string }{
		{"fortrade", s.ForTrade}, {"own", s.Own}, {"preordered", s.Preordered},
		{"prevowned", s.PrevOwned}, {"want", s.Want}, {"wanttobuy", s.WantToBuy},
		{"wanttoplay", s.WantToPlay}, {"wishlist", s.Wishlist},
	} {
		if kv.v == "1" {
			out = append(out, kv.k)
		}
	}
	return out
}

type collectionDoc struct {
	XMLName xml.Name         `xml:"items"`
	Items   []CollectionItem `xml:"item"`
}

type errorsDoc struct {
	Errors []struct {
		Message string `xml:"message"`
	} `xml:"error"`
}

func parsePlays(body []byte) ([]Play, error) {
	var doc playsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode plays: %w", err)
	}
	for i := range doc.Plays {
		for j := range doc.Plays[i].Players {
			p := &doc.Plays[i].Players[j]
			if strings.TrimSpace(p.Name) == "" {
				p.Name = "Unknown"
			}
			if strings.TrimSpace(p.Color) == "" {
				p.Color = "Unknown"
			}
			if strings.TrimSpace(p.Win) == "" {
				p.Win = "Unknown"
			}
		}
	}
	return doc.Plays, nil
}

func parseCollection(body []byte) ([]CollectionItem, error) {
	var doc collectionDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return doc.Items, nil
}

// rootElement returns the name of the document root and, for <message>
// roots only, its text.
func rootElement(body []byte) (name, text string) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", ""
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "message" {
			return se.Name.Local, ""
		}
		var msg struct {
			Body string `xml:",chardata"`
		}
		_ = dec.DecodeElement(&msg, &se)
		return se.Name.Local, strings.TrimSpace(msg.Body)
	}
}

func parseErrors(body []byte) []string {
	var doc errorsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return []string{strings.TrimSpace(string(body))}
	}
	out := make([]string, 0, len(doc.Errors))
	for _, e := range doc.Errors {
		out = append(out, strings.TrimSpace(e.Message))
	}
	return out
}
