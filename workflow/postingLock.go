package workflow

import (
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/serenia-hospitality/procure_backend/config"
	"gorm.io/gorm"
)

// AcquireResortPostingLock serializes posting per resort across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireResortPostingLock(tx *gorm.DB, resortId string) error {
	lockName := fmt.Sprintf("posting:%s", resortId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for resort_id=%s", resortId)
	}
	return nil
}

func ReleaseResortPostingLock(tx *gorm.DB, resortId string) {
	lockName := fmt.Sprintf("posting:%s", resortId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// TryRedisPostingLock is a best-effort fast path that rejects obviously
// concurrent postings before a DB connection is tied up. The MySQL advisory
// lock remains the authority; a nil release func means redis is unavailable
// and the caller proceeds on the advisory lock alone.
func TryRedisPostingLock(resortId string) (release func(), err error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	lock, err := locker.Obtain(config.GetRedisContext(), "postinglock:"+resortId, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		if err == redislock.ErrNotObtained {
			return nil, fmt.Errorf("another posting is in progress for this resort")
		}
		// redis trouble is not a posting failure
		return nil, nil
	}
	return func() {
		_ = lock.Release(config.GetRedisContext())
	}, nil
}
