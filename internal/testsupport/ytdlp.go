// Package testsupport provides fakes shared by package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeYTDLP mimics the parts of yt-dlp the service relies on. The URL decides
// the behaviour: "fail" exits 1, "hang" never returns, "fork" leaves a
// background writer behind, "partial" fails after writing a .part file,
// "noartifact" exits 0 without writing, "badjson"
// prints garbage for -j.
const fakeYTDLP = `#!/bin/sh
mode=extract
out=""
url=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    -j) mode=info; shift ;;
    --version) echo "2024.12.13"; exit 0 ;;
    --) url="$2"; shift 2 ;;
    *) shift ;;
  esac
done
file=$(printf '%s' "$out" | sed 's/%(ext)s$/mp3/')
case "$url" in
  *fork*) ( sleep 1; printf 'ID3' > "$file" ) & wait; exit 0 ;;
  *partial*)
    printf 'x' > "$(printf '%s' "$out" | sed 's/%(ext)s$/webm.part/')"
    echo "ERROR: unable to download video data: HTTP Error 403" >&2; exit 1 ;;
  *fail*) echo "ERROR: [youtube] fail: Video unavailable" >&2; exit 1 ;;
  *hang*) exec sleep 30 ;;
  *noartifact*) exit 0 ;;
  *badjson*) echo "this is not json"; exit 0 ;;
esac
if [ "$mode" = info ]; then
  echo '{"id":"abc","title":"Test Video","duration":212.5,"uploader":"Tester","thumbnail":"https://i.ytimg.com/vi/abc/hq.jpg"}'
  exit 0
fi
echo "[youtube] abc: Downloading webpage"
echo "[download]   0.0% of 3.00MiB at 1.00MiB/s ETA 00:03"
echo "[download]  50.0% of 3.00MiB at 1.00MiB/s ETA 00:01"
echo "[download] 100% of 3.00MiB in 00:03"
printf 'ID3 %s' "$url" > "$file"
echo "[ExtractAudio] Destination: $file"
`

// FakeYTDLP writes the fake extraction tool into a temp dir and returns its path.
func FakeYTDLP(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte(fakeYTDLP), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}
	return path
}
