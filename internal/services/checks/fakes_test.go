package checks

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"rwadirectory/internal/ports"
)

type fakePhishing struct {
	verdict ports.PhishingVerdict
	err     error
	calls   atomic.Int32
	gotArg  string
}

func (f *fakePhishing) LookupDomain(ctx context.Context, domain string) (ports.PhishingVerdict, error) {
	f.calls.Add(1)
	f.gotArg = domain
	return f.verdict, f.err
}

type fakeReputation struct {
	verdict ports.ThreatVerdict
	err     error
	block   bool
}

func (f *fakeReputation) CheckURL(ctx context.Context, rawURL string) (ports.ThreatVerdict, error) {
	if f.block {
		<-ctx.Done()
		return ports.ThreatVerdict{}, ctx.Err()
	}
	return f.verdict, f.err
}

type fakeSanctions struct {
	byName    ports.SanctionsMatch
	byAddress ports.SanctionsMatch
	err       error
	addresses []string
}

func (f *fakeSanctions) SearchName(ctx context.Context, name string) (ports.SanctionsMatch, error) {
	return f.byName, f.err
}

func (f *fakeSanctions) SearchAddress(ctx context.Context, address string) (ports.SanctionsMatch, error) {
	f.addresses = append(f.addresses, address)
	return f.byAddress, f.err
}

type fakeFile struct {
	info    ports.FileInfo
	content []byte
}

type fakeStorage struct {
	files map[string]fakeFile // key: bucket/path
	err   error
}

func (f *fakeStorage) Exists(ctx context.Context, bucket, path string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.files[bucket+"/"+path]
	return ok, nil
}

func (f *fakeStorage) Stat(ctx context.Context, bucket, path string) (ports.FileInfo, error) {
	if f.err != nil {
		return ports.FileInfo{}, f.err
	}
	file, ok := f.files[bucket+"/"+path]
	if !ok {
		return ports.FileInfo{}, ports.ErrServiceUnavailable
	}
	return file.info, nil
}

func (f *fakeStorage) Download(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.files[bucket+"/"+path].content)), nil
}
