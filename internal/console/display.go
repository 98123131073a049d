package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/christian-lee/bililive/internal/resolver"
)

var (
	wideRule   = strings.Repeat("=", 80)
	mediumRule = strings.Repeat("=", 60)
	thinRule   = strings.Repeat("-", 50)
)

// DisplayStreams prints every stream URL grouped by protocol, format and
// codec, with expiry time and time remaining relative to now.
func DisplayStreams(w io.Writer, streams resolver.StreamsMetadata, now time.Time, loc *time.Location) {
	if streams.Len() == 0 {
		fmt.Fprintln(w, "No stream URLs available")
		return
	}

	fmt.Fprintln(w, "\n"+wideRule)
	fmt.Fprintln(w, "Note: these are raw live stream URLs. Browsers usually cannot play them; use a media player.")
	fmt.Fprintln(w, wideRule)

	for _, p := range streams {
		fmt.Fprintf(w, "\n%s\n", mediumRule)
		fmt.Fprintf(w, "Protocol: %s\n", strings.ToUpper(p.Name))
		fmt.Fprintln(w, mediumRule)

		for _, f := range p.Formats {
			fmt.Fprintf(w, "\nFormat: %s\n", strings.ToUpper(f.Name))
			fmt.Fprintln(w, thinRule)

			for _, c := range f.Codecs {
				fmt.Fprintf(w, "\nCodec: %s\n", strings.ToUpper(c.Name))
				for i, u := range c.URLs {
					fmt.Fprintf(w, "%d. %s%s\n", i+1, u.URL, expiryNote(u.Expires, now, loc))
				}
			}
		}
	}
}

func expiryNote(expires *int64, now time.Time, loc *time.Location) string {
	if expires == nil || *expires == 0 {
		return ""
	}
	at := resolver.FormatExpires(*expires, loc)
	remaining := time.Unix(*expires, 0).Sub(now)
	if remaining <= 0 {
		return fmt.Sprintf(" [expires: %s | expired]", at)
	}
	secs := int64(remaining / time.Second)
	return fmt.Sprintf(" [expires: %s | remaining: %dm%ds]", at, secs/60, secs%60)
}

// PrintPlayerHelp prints instructions for opening the URLs in common players.
func PrintPlayerHelp(w io.Writer) {
	fmt.Fprintln(w, "\n"+wideRule)
	fmt.Fprintln(w, "How to play these streams:")
	fmt.Fprintln(w, wideRule)
	fmt.Fprintln(w, "1. ffplay (FFmpeg):")
	fmt.Fprintln(w, "   - Install FFmpeg: https://ffmpeg.org/download.html")
	fmt.Fprintln(w, `   - Run: ffplay "<stream url>"`)
	fmt.Fprintln(w, `   - Example: ffplay "https://example.com/stream.flv"`)
	fmt.Fprintln(w, "\n2. VLC media player:")
	fmt.Fprintln(w, "   - Download VLC: https://www.videolan.org/vlc/")
	fmt.Fprintln(w, "   - Media -> Open Network Stream -> paste the URL -> Play")
	fmt.Fprintln(w, "\n3. PotPlayer:")
	fmt.Fprintln(w, "   - Download PotPlayer: https://potplayer.daum.net/")
	fmt.Fprintln(w, "   - Press F3 -> paste the URL -> OK")
	fmt.Fprintln(w, "\n4. Other players:")
	fmt.Fprintln(w, "   - Most media players can open network streams")
	fmt.Fprintln(w, "\nNotes:")
	fmt.Fprintln(w, "- Stream URLs expire (shown after each URL); fetch them again afterwards")
	fmt.Fprintln(w, "- Browsers usually cannot play these raw stream formats")
	fmt.Fprintln(w, "- If a URL stops working, run the lookup again")
	fmt.Fprintln(w, wideRule)
}
