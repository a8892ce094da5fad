// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package rediscli

import (
	"math/rand"
	"sync"

	"github.com/cloudcopy/suspicious-login/server/config"

	"github.com/redis/go-redis/v9"
)

var (
	client     Client
	clientLock sync.Mutex
)

// GetClient returns the process wide client and creates it from the configuration on first use.
func GetClient() Client {
	clientLock.Lock()
	defer clientLock.Unlock()

	if client == nil {
		client = NewClient()
	}

	return client
}

// Client defines an interface for interacting with a Redis client with methods for initialization and handle retrieval.
type Client interface {
	// GetWriteHandle retrieves the Redis client's write handle for operations requiring write access.
	GetWriteHandle() redis.UniversalClient

	// GetReadHandle retrieves a Redis client's read handle, supporting multiple read handles for load balancing.
	GetReadHandle() redis.UniversalClient

	// Close releases all resources associated with the client.
	Close()
}

// redisClient represents a Redis client with separate handles for write and read operations.
type redisClient struct {
	writeHandle redis.UniversalClient

	// readHandle maps replica addresses to their read-only clients.
	readHandle map[string]redis.UniversalClient
}

var _ Client = (*redisClient)(nil)

// NewClient creates a client for server.redis.address and one read handle per configured replica.
func NewClient() Client {
	redisCfg := config.GetFile().GetServer().GetRedis()
	master := redisCfg.GetAddress()

	newClient := &redisClient{}
	tracing := config.GetFile().GetServer().GetTelemetry().Enabled()

	newClient.SetWriteHandle(newRedisClient(redisCfg, master, tracing))

	for _, address := range redisCfg.ReplicaAddresses {
		if address != master {
			newClient.AddReadHandle(address, newRedisClient(redisCfg, address, tracing))
		}
	}

	return newClient
}

// SetWriteHandle sets the write handle for the redisClient to the provided redis.UniversalClient instance.
func (clt *redisClient) SetWriteHandle(handle redis.UniversalClient) {
	clt.writeHandle = handle
}

// AddReadHandle adds a read handle for the specified address to the redisClient's readHandle map.
func (clt *redisClient) AddReadHandle(address string, handle redis.UniversalClient) {
	if clt.readHandle == nil {
		clt.readHandle = make(map[string]redis.UniversalClient)
	}

	clt.readHandle[address] = handle
}

// GetWriteHandle returns the Redis client's write handle, which is used for operations requiring write access.
func (clt *redisClient) GetWriteHandle() redis.UniversalClient {
	return clt.writeHandle
}

// GetReadHandle returns a random replica handle, or the write handle if there are no replicas.
func (clt *redisClient) GetReadHandle() redis.UniversalClient {
	if len(clt.readHandle) == 0 {
		return clt.writeHandle
	}

	addresses := make([]string, 0, len(clt.readHandle))
	for address := range clt.readHandle {
		addresses = append(addresses, address)
	}

	return clt.readHandle[addresses[rand.Intn(len(addresses))]]
}

// Close terminates all active connections held by the redisClient, including both write and read handles.
func (clt *redisClient) Close() {
	if clt.writeHandle != nil {
		clt.writeHandle.Close()
	}

	for _, handle := range clt.readHandle {
		handle.Close()
	}
}

// testClient is a concrete implementation of the Client interface using a Redis UniversalClient.
type testClient struct {
	client redis.UniversalClient
}

func (tc *testClient) GetWriteHandle() redis.UniversalClient {
	return tc.client
}

func (tc *testClient) GetReadHandle() redis.UniversalClient {
	return tc.client
}

func (tc *testClient) Close() {
	tc.client.Close()
}

var _ Client = (*testClient)(nil)

// NewTestClient installs db as the process wide client and returns it. Used with redismock.
func NewTestClient(db *redis.Client) Client {
	clientLock.Lock()
	defer clientLock.Unlock()

	client = &testClient{client: db}

	return client
}
