package blocklist

import (
	"github.com/activecm/snitch/resources"
	"github.com/globalsign/mgo"
)

type repo struct {
	res *resources.Resources
}

//NewMongoRepository loads blocklist entries from the blocklist collection
func NewMongoRepository(res *resources.Resources) Repository {
	return &repo{
		res: res,
	}
}

//LoadAll reads every blocklist row out of MongoDB
func (r *repo) LoadAll() ([]Entry, error) {
	session := r.res.DB.Session.Copy()
	defer session.Close()

	var entries []Entry
	err := session.DB(r.res.DB.GetSelectedDB()).
		C(r.res.Config.T.Blocklist.BlocklistTable).
		Find(nil).All(&entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

//CreateIndexes sets up the blocklist collection
func CreateIndexes(res *resources.Resources) error {
	collectionName := res.Config.T.Blocklist.BlocklistTable
	if res.DB.CollectionExists(collectionName) {
		return nil
	}

	indexes := []mgo.Index{
		{Key: []string{"pattern"}, Unique: true},
		{Key: []string{"severity"}},
	}

	return res.DB.CreateCollection(collectionName, indexes)
}

//Import upserts entries into the blocklist collection, keyed by pattern
func Import(res *resources.Resources, entries []Entry) (int, error) {
	session := res.DB.Session.Copy()
	defer session.Close()

	coll := session.DB(res.DB.GetSelectedDB()).C(res.Config.T.Blocklist.BlocklistTable)

	imported := 0
	for _, entry := range entries {
		_, err := coll.Upsert(map[string]interface{}{"pattern": entry.Pattern}, entry)
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
