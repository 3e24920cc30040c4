package etcd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"Jarvis_chat/backend/go/pkg/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// keyPrefix 之下按 /chat/services/<name>/<addr> 存放实例地址。
const keyPrefix = "/chat/services/"

// ServiceDiscovery 用 etcd 租约登记 chat_service 与 memory_service 的实例。
type ServiceDiscovery struct {
	cli *clientv3.Client
	log *logger.Logger
}

// NewServiceDiscovery creates a new ServiceDiscovery.
func NewServiceDiscovery(endpoints []string, log *logger.Logger) (*ServiceDiscovery, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are empty")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New("discovery", "", "")
	}
	return &ServiceDiscovery{cli: cli, log: log}, nil
}

func serviceKey(serviceName, addr string) string {
	return keyPrefix + serviceName + "/" + addr
}

// Registration 是一次登记，Stop 撤销租约并删除 key。
type Registration struct {
	sd      *ServiceDiscovery
	key     string
	leaseID clientv3.LeaseID
	cancel  context.CancelFunc
	once    sync.Once
}

// Register 以 ttl 秒的租约登记实例，并在后台续约直到 ctx 结束或调用 Stop。
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) (*Registration, error) {
	if ttl <= 0 {
		ttl = 10
	}
	leaseResp, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return nil, fmt.Errorf("grant lease: %w", err)
	}

	key := serviceKey(serviceName, addr)
	if _, err := s.cli.Put(ctx, key, addr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	kaCtx, cancel := context.WithCancel(ctx)
	keepAliveCh, err := s.cli.KeepAlive(kaCtx, leaseResp.ID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("keep alive: %w", err)
	}

	reg := &Registration{sd: s, key: key, leaseID: leaseResp.ID, cancel: cancel}
	go func() {
		for {
			select {
			case <-kaCtx.Done():
				return
			case _, ok := <-keepAliveCh:
				if !ok {
					s.log.Warn(fmt.Sprintf("etcd lease for %s lost", key))
					return
				}
			}
		}
	}()
	s.log.Info(fmt.Sprintf("Service '%s' registered at '%s'", serviceName, addr))
	return reg, nil
}

// Stop 停止续约并撤销租约，可重复调用。
func (r *Registration) Stop(ctx context.Context) {
	r.once.Do(func() {
		r.cancel()
		if _, err := r.sd.cli.Revoke(ctx, r.leaseID); err != nil {
			r.sd.log.Warn(fmt.Sprintf("revoke lease for %s: %v", r.key, err))
		}
	})
}

// Discover 返回某个服务当前登记的全部地址。
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	prefix := serviceKey(serviceName, "")
	resp, err := s.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		if !strings.HasPrefix(string(kv.Key), prefix) {
			continue
		}
		addrs = append(addrs, string(kv.Value))
	}
	return addrs, nil
}

// HealthCheck 读一次成员列表，用于 /health。
func (s *ServiceDiscovery) HealthCheck(ctx context.Context) error {
	if _, err := s.cli.MemberList(ctx); err != nil {
		return fmt.Errorf("etcd health check failed: %w", err)
	}
	return nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
