package kvstore

// Consul-backed implementation of infra.KVStore, kept for deployments that
// already run Consul and prefer the ledger to live there instead of on local
// disk. Adapted from github.com/philippgille/gokv/consul.

import (
	"errors"

	"github.com/ashfall-labs/burnwatcher/pkg/common/enum"
	"github.com/ashfall-labs/burnwatcher/pkg/infra"
	"github.com/hashicorp/consul/api"
)

// ConsulClient implements infra.KVStore.
type ConsulClient struct {
	c      *api.KV
	folder string
	codec  infra.Codec
}

func (c ConsulClient) GetName() string {
	return string(enum.KVStoreTypeConsul)
}

func (c ConsulClient) fullKey(k string) string {
	if c.folder != "" {
		return c.folder + "/" + k
	}
	return k
}

func (c ConsulClient) Set(k string, v string) error {
	if err := checkKeyAndValue(k, v); err != nil {
		return err
	}

	kvPair := api.KVPair{
		Key:   c.fullKey(k),
		Value: []byte(v),
	}
	_, err := c.c.Put(&kvPair, nil)
	return err
}

// Get retrieves the stored value for the given key.
func (c ConsulClient) Get(k string) (string, error) {
	if k == "" {
		return "", ErrKeyEmpty
	}

	kvPair, _, err := c.c.Get(c.fullKey(k), nil)
	if err != nil {
		return "", err
	}
	if kvPair == nil {
		return "", ErrKeyNotFound
	}
	return string(kvPair.Value), nil
}

// SetAny stores the given value for the given key, marshalled with the
// configured codec. The key must not be "" and the value must not be nil.
func (c ConsulClient) SetAny(k string, v any) error {
	if err := checkKeyAndValue(k, v); err != nil {
		return err
	}

	data, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}

	kvPair := api.KVPair{
		Key:   c.fullKey(k),
		Value: data,
	}
	_, err = c.c.Put(&kvPair, nil)
	return err
}

// GetAny retrieves the stored value for the given key into the pointer v.
// If no value is found it returns (false, nil).
func (c ConsulClient) GetAny(k string, v any) (found bool, err error) {
	if err := checkKeyAndValue(k, v); err != nil {
		return false, err
	}

	kvPair, _, err := c.c.Get(c.fullKey(k), nil)
	if err != nil {
		return false, err
	}
	if kvPair == nil {
		return false, nil
	}
	return true, c.codec.Unmarshal(kvPair.Value, v)
}

func (c ConsulClient) List(prefix string) ([]*infra.KVPair, error) {
	if prefix == "" {
		return nil, errors.New("prefix is empty")
	}

	kvPairs, _, err := c.c.List(c.fullKey(prefix), nil)
	if err != nil {
		return nil, err
	}

	result := make([]*infra.KVPair, len(kvPairs))
	for i, kvPair := range kvPairs {
		key := kvPair.Key
		if c.folder != "" {
			key = key[len(c.folder)+1:]
		}
		result[i] = &infra.KVPair{
			Key:   key,
			Value: kvPair.Value,
		}
	}

	return result, nil
}

// Delete deletes the stored value for the given key.
// Deleting a non-existing key-value pair does NOT lead to an error.
func (c ConsulClient) Delete(k string) error {
	if k == "" {
		return ErrKeyEmpty
	}

	_, err := c.c.Delete(c.fullKey(k), nil)
	return err
}

// Close closes the client.
// In the Consul implementation this doesn't have any effect.
func (c ConsulClient) Close() error {
	return nil
}

// Options are the options for the Consul client.
type Options struct {
	// URI scheme for the Consul server.
	// Optional ("http" by default).
	Scheme string
	// Address of the Consul server, including port number.
	// Optional ("127.0.0.1:8500" by default).
	Address string
	// Directory under which to store the key-value pairs.
	// The Consul UI calls this "folder".
	// Optional (none by default).
	Folder string
	// ACL token for requests.
	// Optional (none by default).
	Token string
	// HTTP Basic auth credentials.
	// Optional (none by default).
	HttpAuth *api.HttpBasicAuth
	// Codec used to marshal values.
	Codec infra.Codec
}

// NewConsulClient creates a new ConsulClient.
func NewConsulClient(options Options) (ConsulClient, error) {
	result := ConsulClient{}

	config := api.DefaultConfig()
	if options.Scheme != "" {
		config.Scheme = options.Scheme
	}
	if options.Address != "" {
		config.Address = options.Address
	}
	if options.Token != "" {
		config.Token = options.Token
	}
	if options.HttpAuth != nil && options.HttpAuth.Username != "" {
		config.HttpAuth = options.HttpAuth
	}
	codec := options.Codec
	if codec == nil {
		codec = infra.JSON
	}

	client, err := api.NewClient(config)
	if err != nil {
		return result, err
	}

	result.c = client.KV()
	result.folder = options.Folder
	result.codec = codec
	return result, nil
}
