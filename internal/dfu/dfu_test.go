package dfu

import "testing"

func TestEncodeDecodeRoundTrips(t *testing.T) {
	p := Packet{
		Op:              OpDownload,
		EchoRequest:     true,
		StartOfTransfer: true,
		TransferID:      7,
		Words:           []uint32{1, 2, 3},
	}
	raw := Encode(p)
	if len(raw) != PacketSize {
		t.Fatalf("expected %d-byte packet, got %d", PacketSize, len(raw))
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Op != OpDownload || !got.EchoRequest || !got.StartOfTransfer || got.TransferID != 7 {
		t.Fatalf("decoded packet mismatch: %+v", got)
	}
	for i, w := range []uint32{1, 2, 3} {
		if got.Words[i] != w {
			t.Fatalf("word %d: expected %d, got %d", i, w, got.Words[i])
		}
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := Decode(make([]byte, 10)); err == nil {
		t.Fatalf("expected error for undersized packet")
	}
}

func TestCommandByteBitLayout(t *testing.T) {
	p := Packet{Op: OpStatusRequest, EchoAnswer: true}
	raw := Encode(p)
	if raw[0]&0x1F != byte(OpStatusRequest) {
		t.Fatalf("expected opcode in low 5 bits, got %08b", raw[0])
	}
	if raw[0]&(1<<bitEchoAnswer) == 0 {
		t.Fatalf("expected echo-answer bit set")
	}
	if raw[0]&(1<<bitEchoRequest) != 0 {
		t.Fatalf("expected echo-request bit clear")
	}
}

func TestTransferPacketCountAndLastPacketSize(t *testing.T) {
	// 14 words/packet * 4 bytes/word = 56 bytes per full packet.
	image := make([]byte, 56*3+4*5) // three full packets, one with 5 words
	tr := NewTransfer(image)
	if tr.PacketCount() != 4 {
		t.Fatalf("expected 4 packets, got %d", tr.PacketCount())
	}
	if tr.SizeOfLastPacket() != 5 {
		t.Fatalf("expected last packet to carry 5 words, got %d", tr.SizeOfLastPacket())
	}
}

func TestTransferFullPacketsCarryAllFourteenWords(t *testing.T) {
	image := make([]byte, 56*2)
	tr := NewTransfer(image)
	if tr.SizeOfLastPacket() != WordsPerPacket {
		t.Fatalf("expected exact multiple to report a full last packet, got %d", tr.SizeOfLastPacket())
	}
	p := tr.Packet(0)
	if len(p.Words) != WordsPerPacket {
		t.Fatalf("expected %d words, got %d", WordsPerPacket, len(p.Words))
	}
}

func TestVerifyImageCRCDetectsCorruption(t *testing.T) {
	image := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tr := NewTransfer(image)
	if !VerifyImageCRC(image, tr.CRC()) {
		t.Fatalf("expected CRC to verify against its own source image")
	}
	corrupted := append([]byte(nil), image...)
	corrupted[0] ^= 0xFF
	if VerifyImageCRC(corrupted, tr.CRC()) {
		t.Fatalf("expected CRC mismatch after corruption")
	}
}

func TestFirstPacketMarksStartOfTransfer(t *testing.T) {
	tr := NewTransfer(make([]byte, 56*2))
	if !tr.Packet(0).StartOfTransfer {
		t.Fatalf("expected first packet to set start-of-transfer")
	}
	if tr.Packet(1).StartOfTransfer {
		t.Fatalf("expected subsequent packets to clear start-of-transfer")
	}
}
