package buffers

import "testing"

func TestGetPutRoundTrip(t *testing.T) {
	Configure(1024)

	buf := Get()
	if int64(len(*buf)) != 1024 {
		t.Fatalf("buffer size = %d, want 1024", len(*buf))
	}
	Put(buf)
}

func TestPutRejectsWrongSize(t *testing.T) {
	Configure(1024)

	wrong := make([]byte, 512)
	Put(&wrong) // must not end up in the pool

	buf := Get()
	if int64(len(*buf)) != 1024 {
		t.Errorf("pool handed out a %d-byte buffer after wrong-size Put", len(*buf))
	}
	Put(buf)
}

func TestPutNil(t *testing.T) {
	Put(nil) // must not panic
}
