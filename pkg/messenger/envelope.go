package messenger

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// ParseEnvelope splits a webhook POST body
//
//	{"object":"page","entry":[{"id":PAGE_ID,"time":..,"messaging":[ITEM, ...]}]}
//
// into Events, in delivery order. Each item gets its entry's id as page id and
// pageToken as token. The first bad item fails the whole envelope.
func ParseEnvelope(body []byte, pageToken string, opts ...EventOption) ([]*Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}
	root := gjson.ParseBytes(body)
	if obj := root.Get("object").String(); obj != "page" {
		return nil, fmt.Errorf("%w: got %q", ErrNotPageObject, obj)
	}

	var (
		out []*Event
		err error
	)
	root.Get("entry").ForEach(func(_, entry gjson.Result) bool {
		pageID := entry.Get("id").String()
		entry.Get("messaging").ForEach(func(_, item gjson.Result) bool {
			var ev *Event
			if ev, err = ParseEvent([]byte(item.Raw), pageID, pageToken, opts...); err != nil {
				err = fmt.Errorf("entry %s: %w", pageID, err)
				return false
			}
			out = append(out, ev)
			return true
		})
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
