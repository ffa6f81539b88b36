package sqlinline

const QInsertUser = `--sql 58ad31f8-e3b2-4848-91af-d2cbefd6f893
insert into users (id, username, email, password_hash, created_at)
values (gen_random_uuid(), $1::text, nullif($2::text, ''), $3::text, now())
returning id::text, username, coalesce(email, ''), password_hash, created_at;
`

const QSelectUserByUsername = `--sql c877e3e3-5725-4838-9030-7cfaacbe44fa
select id::text, username, coalesce(email, ''), password_hash, created_at
from users
where lower(username) = lower($1::text)
limit 1;
`

const QCountUsers = `--sql e18b89f9-c519-4913-a991-e5c8fcdd2bf6
select count(*) from users;
`
