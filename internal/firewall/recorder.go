package firewall

import "github.com/dotX12/denyhosts-go/internal/domain"

// RecordingBackend is the test-double implementation spec.md §9 design
// note calls for: "a test-double implementation records calls."
type RecordingBackend struct {
	InitCalls  int
	InitErr    error
	BlockErr   error
	Blocked    []domain.Host
	CheckedSet map[domain.Host]bool
}

func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{CheckedSet: make(map[domain.Host]bool)}
}

func (b *RecordingBackend) Init() error {
	b.InitCalls++
	return b.InitErr
}

func (b *RecordingBackend) Check(host domain.Host) bool {
	return b.CheckedSet[host]
}

func (b *RecordingBackend) Block(hosts []domain.Host) error {
	if b.BlockErr != nil {
		return b.BlockErr
	}
	b.Blocked = append(b.Blocked, hosts...)
	for _, h := range hosts {
		b.CheckedSet[h] = true
	}
	return nil
}
