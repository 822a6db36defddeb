package wav

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/echolabs-dev/voicelat/pkg/rtc"
)

// Writer writes 16-bit PCM audio frames to a WAV file. The header is
// finalized with the real sizes on Close.
type Writer struct {
	file           *os.File
	sampleRate     uint32
	numChannels    uint16
	bitsPerSample  uint16
	samplesWritten uint32
}

// NewWriter creates a WAV file and writes a placeholder header.
func NewWriter(filename string, sampleRate uint32, numChannels uint16) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create WAV file: %w", err)
	}

	writer := &Writer{
		file:          file,
		sampleRate:    sampleRate,
		numChannels:   numChannels,
		bitsPerSample: 16,
	}

	if err := writer.writeHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("write WAV header: %w", err)
	}
	return writer, nil
}

// WriteFrame appends one audio frame. The frame must match the writer's
// sample rate and channel count.
func (w *Writer) WriteFrame(frame rtc.AudioFrame) error {
	if frame.SampleRate != int(w.sampleRate) || frame.NumChannels != int(w.numChannels) {
		return fmt.Errorf("frame format mismatch: got %dHz %dch, writer is %dHz %dch",
			frame.SampleRate, frame.NumChannels, w.sampleRate, w.numChannels)
	}
	if _, err := w.file.Write(frame.Data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	w.samplesWritten += uint32(frame.SamplesPerChannel)
	return nil
}

// WriteFrames appends a sequence of frames.
func (w *Writer) WriteFrames(frames []rtc.AudioFrame) error {
	for i, frame := range frames {
		if err := w.WriteFrame(frame); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// Close patches the header with the final sizes and closes the file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}

	dataSize := w.samplesWritten * uint32(w.numChannels) * uint32(w.bitsPerSample) / 8
	chunkSize := dataSize + 36

	if _, err := w.file.Seek(4, 0); err != nil {
		return fmt.Errorf("seek to chunk size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, chunkSize); err != nil {
		return fmt.Errorf("write chunk size: %w", err)
	}

	if _, err := w.file.Seek(40, 0); err != nil {
		return fmt.Errorf("seek to data size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, dataSize); err != nil {
		return fmt.Errorf("write data size: %w", err)
	}

	err := w.file.Close()
	w.file = nil
	return err
}

func (w *Writer) writeHeader() error {
	if _, err := w.file.WriteString("RIFF"); err != nil {
		return err
	}
	// Chunk size, patched in Close.
	if err := binary.Write(w.file, binary.LittleEndian, uint32(0)); err != nil {
		return err
	}
	if _, err := w.file.WriteString("WAVE"); err != nil {
		return err
	}

	if _, err := w.file.WriteString("fmt "); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	// PCM
	if err := binary.Write(w.file, binary.LittleEndian, uint16(1)); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, w.numChannels); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, w.sampleRate); err != nil {
		return err
	}
	byteRate := w.sampleRate * uint32(w.numChannels) * uint32(w.bitsPerSample) / 8
	if err := binary.Write(w.file, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	blockAlign := w.numChannels * w.bitsPerSample / 8
	if err := binary.Write(w.file, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, w.bitsPerSample); err != nil {
		return err
	}

	if _, err := w.file.WriteString("data"); err != nil {
		return err
	}
	// Data size, patched in Close.
	return binary.Write(w.file, binary.LittleEndian, uint32(0))
}
