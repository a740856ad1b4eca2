package grc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/shared"
)

// memRepo is an in-memory Repository covering the methods the service tests
// exercise. Unimplemented methods panic through the nil embedded interface.
type memRepo struct {
	Repository

	mu          sync.Mutex
	nextID      int64
	departments map[int64]Department
	risks       map[int64]Risk
	issues      map[int64]Issue
	artifacts   map[int64]Artifact
	createErr   error

	evidenceSaves int
}

func newMemRepo() *memRepo {
	return &memRepo{
		departments: map[int64]Department{},
		risks:       map[int64]Risk{},
		issues:      map[int64]Issue{},
		artifacts:   map[int64]Artifact{},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) FindDepartmentByName(ctx context.Context, name string) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.departments {
		if d.Name == name {
			return d, nil
		}
	}
	return Department{}, ErrNotFound
}

func (m *memRepo) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.id()
	m.departments[d.ID] = d
	return d, nil
}

func (m *memRepo) DeleteDepartment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.departments[id]; !ok {
		return ErrNotFound
	}
	delete(m.departments, id)
	for rid, r := range m.risks {
		if r.DepartmentID == id {
			delete(m.risks, rid)
		}
	}
	for aid, a := range m.artifacts {
		if a.DepartmentID == id {
			delete(m.artifacts, aid)
		}
	}
	return nil
}

func (m *memRepo) DepartmentFiles(ctx context.Context, id int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.risks {
		if r.DepartmentID == id && r.EvidenceFile != "" {
			out = append(out, r.EvidenceFile)
		}
	}
	for _, a := range m.artifacts {
		if a.DepartmentID == id {
			out = append(out, a.File)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRepo) GetRisk(ctx context.Context, id int64) (Risk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.risks[id]
	if !ok {
		return Risk{}, fmt.Errorf("risk %d: %w", id, ErrNotFound)
	}
	return r, nil
}

func (m *memRepo) CreateRisk(ctx context.Context, r Risk) (Risk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return Risk{}, m.createErr
	}
	r.ID = m.id()
	m.risks[r.ID] = r
	return r, nil
}

func (m *memRepo) UpdateRisk(ctx context.Context, r Risk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.risks[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.CompliancePercentage = current.CompliancePercentage
	r.EvidenceUploaded = current.EvidenceUploaded
	r.EvidenceFile = current.EvidenceFile
	r.LastEvidenceUpdate = current.LastEvidenceUpdate
	m.risks[r.ID] = r
	return nil
}

func (m *memRepo) SaveRiskEvidence(ctx context.Context, r Risk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.risks[r.ID]
	if !ok {
		return ErrNotFound
	}
	current.CompliancePercentage = r.CompliancePercentage
	current.EvidenceUploaded = r.EvidenceUploaded
	current.EvidenceFile = r.EvidenceFile
	current.LastEvidenceUpdate = r.LastEvidenceUpdate
	m.risks[r.ID] = current
	m.evidenceSaves++
	return nil
}

func (m *memRepo) CreateIssue(ctx context.Context, i Issue) (Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i.ID = m.id()
	m.issues[i.ID] = i
	return i, nil
}

func (m *memRepo) GetArtifact(ctx context.Context, id int64) (Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return Artifact{}, fmt.Errorf("artifact %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *memRepo) CreateArtifact(ctx context.Context, a Artifact) (Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return Artifact{}, m.createErr
	}
	a.ID = m.id()
	m.artifacts[a.ID] = a
	return a, nil
}

func (m *memRepo) DeleteArtifact(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[id]; !ok {
		return ErrNotFound
	}
	delete(m.artifacts, id)
	return nil
}

// memStore is an in-memory filestore.Store.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
	deleted   []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (filestore.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return filestore.Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return filestore.Object{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, filestore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, filestore.Object{}, filestore.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), filestore.Object{Key: key, Size: int64(len(data))}, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) List(ctx context.Context, prefix string) ([]filestore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []filestore.Object
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, filestore.Object{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// auditSpy collects recorded audit entries.
type auditSpy struct {
	mu      sync.Mutex
	entries []shared.AuditLog
	err     error
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return a.err
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func newTestService(repo Repository, files filestore.Store, audit AuditRecorder) *Service {
	return NewService(repo, files, audit, nil, WithClock(func() time.Time { return fixedNow }))
}
