package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Task 排程任務，執行時取得排程器的背景 context
type Task func(ctx context.Context)

// Scheduler 任務排程介面，測試時以同步替身實作
type Scheduler interface {
	Enqueue(name string, task Task) error
	EnqueueAfter(delay time.Duration, name string, task Task) error
	Status() *Status
}

// Status 排程器狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	PendingTimers  int `json:"pending_timers"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

type queuedTask struct {
	name string
	task Task
}

// Manager 任務排程管理器，以固定數量的 worker 消化隊列
type Manager struct {
	config    *config.Config
	queue     chan *queuedTask
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	processed int64
	timers    map[*time.Timer]struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
}

// NewManager 創建新的排程管理器
func NewManager(cfg *config.Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config: cfg,
		queue:  make(chan *queuedTask, cfg.Scheduler.QueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[*time.Timer]struct{}),
	}
}

// Start 啟動 worker
func (m *Manager) Start() {
	for i := 0; i < m.config.Scheduler.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("Scheduler started",
		zap.Int("workers", m.config.Scheduler.Workers),
		zap.Int("max_queue_size", m.config.Scheduler.QueueSize),
	)
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case task, ok := <-m.queue:
			if !ok {
				return
			}
			m.run(id, task)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) run(workerID int, task *queuedTask) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("Task panicked",
				zap.String("task", task.name),
				zap.Int("worker_id", workerID),
				zap.Any("panic", r),
			)
		}
	}()

	start := time.Now()
	task.task(m.ctx)
	atomic.AddInt64(&m.processed, 1)

	common.LogInfo("Task completed",
		zap.String("task", task.name),
		zap.Int("worker_id", workerID),
		zap.Duration("duration", time.Since(start)),
	)
}

// Enqueue 將任務加入隊列
func (m *Manager) Enqueue(name string, task Task) error {
	queued := &queuedTask{name: name, task: task}

	select {
	case m.queue <- queued:
		common.LogInfo("Task enqueued",
			zap.String("task", name),
			zap.Int("queue_length", len(m.queue)),
		)
		return nil
	case <-m.done:
		return fmt.Errorf("scheduler is closed")
	default:
		return fmt.Errorf("scheduler queue is full")
	}
}

// EnqueueAfter 延遲指定時間後將任務加入隊列，用於重試退避
func (m *Manager) EnqueueAfter(delay time.Duration, name string, task Task) error {
	if delay <= 0 {
		return m.Enqueue(name, task)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("scheduler is closed")
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		delete(m.timers, timer)
		m.mu.Unlock()

		if err := m.Enqueue(name, task); err != nil {
			common.LogError("Failed to enqueue delayed task",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	})
	m.timers[timer] = struct{}{}
	m.mu.Unlock()

	common.LogInfo("Task scheduled",
		zap.String("task", name),
		zap.Duration("delay", delay),
	)
	return nil
}

// Status 獲取排程器狀態
func (m *Manager) Status() *Status {
	m.mu.Lock()
	pending := len(m.timers)
	m.mu.Unlock()

	return &Status{
		QueueLength:    len(m.queue),
		PendingTimers:  pending,
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.Scheduler.QueueSize,
		Workers:        m.config.Scheduler.Workers,
	}
}

// Close 關閉排程器並等待執行中的任務結束
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for timer := range m.timers {
		timer.Stop()
	}
	m.timers = make(map[*time.Timer]struct{})
	m.mu.Unlock()

	close(m.done)
	m.cancel()
	m.wg.Wait()
	common.LogInfo("Scheduler stopped")
}
