package mail

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset" // register decoders for non-UTF-8 mail
	gomail "github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/config"
)

// Inbox discovers waybill numbers in the unread messages of an IMAP mailbox.
// Every message it consumes is flagged \Seen so the next run does not see it
// again.
type Inbox struct {
	cfg config.IMAP
	log zerolog.Logger
}

func NewInbox(cfg config.IMAP, log zerolog.Logger) *Inbox {
	return &Inbox{cfg: cfg, log: log.With().Str("component", "mail").Logger()}
}

// Waybills connects, reads every unseen message, extracts waybill numbers
// from the text parts and marks the messages read. Any connection-level
// error surfaces to the caller, which treats it as zero discoveries.
func (in *Inbox) Waybills(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The dialer timeout also bounds the TLS handshake, so a black-holed
	// server cannot stall discovery past the configured limit.
	addr := fmt.Sprintf("%s:%d", in.cfg.Server, in.cfg.Port)
	c, err := client.DialWithDialerTLS(&net.Dialer{Timeout: in.cfg.Timeout}, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", addr, err)
	}
	defer c.Logout()
	c.Timeout = in.cfg.Timeout

	if err := c.Login(in.cfg.Username, in.cfg.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(in.cfg.Mailbox, false); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", in.cfg.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	nums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search unseen: %w", err)
	}
	if len(nums) == 0 {
		in.log.Info().Msg("no new unread messages")
		return nil, nil
	}
	in.log.Info().Int("messages", len(nums)).Msg("processing unread messages")

	seqset := new(imap.SeqSet)
	seqset.AddNum(nums...)
	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(nums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var waybills []string
	seen := make(map[string]bool)
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		for _, wb := range ExtractWaybills(in.messageText(body)) {
			if seen[wb] {
				continue
			}
			seen[wb] = true
			waybills = append(waybills, wb)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	// Consumption contract: everything we just read is marked \Seen.
	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.Store(seqset, op, []interface{}{imap.SeenFlag}, nil); err != nil {
		in.log.Warn().Err(err).Msg("could not mark messages read, they may be reprocessed")
	}
	return waybills, nil
}

// messageText concatenates the text/plain and text/html parts of one
// message. Parts that fail to decode are skipped; a waybill in a broken part
// just waits for the next mail that mentions it.
func (in *Inbox) messageText(r io.Reader) string {
	mr, err := gomail.CreateReader(r)
	if err != nil {
		in.log.Warn().Err(err).Msg("unreadable message, skipping")
		return ""
	}
	var b strings.Builder
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			in.log.Warn().Err(err).Msg("unreadable message part, skipping rest")
			break
		}
		h, ok := p.Header.(*gomail.InlineHeader)
		if !ok {
			continue // attachments carry no waybills we care about
		}
		ct, _, _ := h.ContentType()
		if ct != "text/plain" && ct != "text/html" {
			continue
		}
		if body, err := io.ReadAll(p.Body); err == nil {
			b.Write(body)
		}
	}
	return b.String()
}
