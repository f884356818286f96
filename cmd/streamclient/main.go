// Command streamclient streams a WAV file to the transcription WebSocket in
// real time and prints the frames the server broadcasts.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// At 16kHz 16-bit mono = 32000 bytes/second
// 100ms chunks = 3200 bytes
const chunkSize = 3200
const chunkIntervalMs = 100

type frame struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Speaker  string          `json:"speaker"`
	Message  string          `json:"message"`
	Segments json.RawMessage `json:"segments"`
}

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	server := flag.String("server", "ws://localhost:8000/transcribe/ws", "WebSocket endpoint")
	lang := flag.String("language", "", "Language to select on connect (hi, ne, mai)")
	switchTo := flag.String("switch", "", "Language to switch to halfway through the file")
	flag.Parse()

	pcm, err := readWAV(*audioFile)
	if err != nil {
		log.Fatalf("Failed to read audio: %v", err)
	}

	u, err := url.Parse(*server)
	if err != nil {
		log.Fatalf("Invalid server URL: %v", err)
	}
	if *lang != "" {
		q := u.Query()
		q.Set("language", *lang)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("Failed to connect: %v (HTTP %d)", err, resp.StatusCode)
		}
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", u.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			printFrame(data)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ticker := time.NewTicker(chunkIntervalMs * time.Millisecond)
	defer ticker.Stop()

	half := len(pcm) / 2
	switched := *switchTo == ""
	sent := 0
	for sent < len(pcm) {
		select {
		case <-interrupt:
			log.Println("Interrupted")
			closeConn(conn, done)
			return
		case <-done:
			log.Println("Server closed the connection")
			return
		case <-ticker.C:
		}

		end := min(sent+chunkSize, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[sent:end]); err != nil {
			log.Fatalf("Failed to send audio: %v", err)
		}
		sent = end

		if !switched && sent >= half {
			msg, _ := json.Marshal(map[string]string{"type": "config", "language": *switchTo})
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Fatalf("Failed to switch language: %v", err)
			}
			log.Printf("Switched language to %s", *switchTo)
			switched = true
		}
	}

	log.Printf("Sent %d bytes, waiting for trailing results", sent)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	closeConn(conn, done)
}

func readWAV(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])
	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 || bitsPerSample != 16 || numChannels != 1 {
		log.Fatal("Only 16-bit mono PCM supported")
	}
	if sampleRate != 16000 {
		log.Printf("Warning: Sample rate is %d Hz, expected 16000 Hz", sampleRate)
	}
	return io.ReadAll(f)
}

func printFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("[raw] %s", data)
		return
	}
	switch f.Type {
	case "transcription":
		if f.Speaker != "" {
			log.Printf("[%s] %s: %s", f.Language, f.Speaker, f.Text)
		} else {
			log.Printf("[%s] %s", f.Language, f.Text)
		}
		if len(f.Segments) > 0 {
			log.Printf("  segments: %s", f.Segments)
		}
	case "speaker":
		log.Printf("speaker -> %s", f.Speaker)
	case "config":
		log.Printf("language -> %s", f.Language)
	case "error":
		log.Printf("error: %s", f.Message)
	default:
		log.Printf("[%s] %s", f.Type, data)
	}
}

func closeConn(conn *websocket.Conn, done <-chan struct{}) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
